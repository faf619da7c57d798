package versions

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

// revisionPrefix marks a package revision in the prerelease slot, as in
// "1.2.3-r4". Revisions compare numerically, so 0.0.0-r9 < 0.0.0-r10.
const revisionPrefix = "r"

// NewVersion parses a package version string. Some legacy versions separate
// pre-release data with an underscore, which go-version rejects.
func NewVersion(v string) (*version.Version, error) {
	v = strings.ReplaceAll(v, "_", "")
	return version.NewVersion(v)
}

// ByLatest sorts versions so that the latest version comes last.
type ByLatest []*version.Version

func (u ByLatest) Len() int      { return len(u) }
func (u ByLatest) Swap(i, j int) { u[i], u[j] = u[j], u[i] }

func (u ByLatest) Less(i, j int) bool {
	vi, vj := u[i], u[j]
	if equal(vi.Segments(), vj.Segments()) {
		// go-version ignores build metadata, but forks of the same release
		// encode their ordering there
		if vi.Metadata() != vj.Metadata() {
			return vi.Metadata() < vj.Metadata()
		}
		if less, ok := revisionLess(vi, vj); ok {
			return less
		}
	}
	return vi.LessThan(vj)
}

// revisionLess compares two versions whose numeric segments are equal and
// whose prerelease parts are both revisions. The second result is false when
// the ordinary go-version comparison should be used instead.
func revisionLess(vi, vj *version.Version) (less, ok bool) {
	if !equal(vi.Segments(), vj.Segments()) {
		return false, false
	}
	pi, pj := vi.Prerelease(), vj.Prerelease()
	if !strings.HasPrefix(pi, revisionPrefix) || !strings.HasPrefix(pj, revisionPrefix) {
		return false, false
	}

	ri, erri := strconv.ParseInt(pi[1:], 10, 64)
	rj, errj := strconv.ParseInt(pj[1:], 10, 64)
	if erri != nil || errj != nil {
		// non-numeric revisions fall back to string order
		return pi[1:] < pj[1:], true
	}
	return ri < rj, true
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// Latest returns the highest version among the given strings. Strings that
// don't parse as versions are skipped; if none parse, Latest returns "".
func Latest(vs []string) string {
	parsed := make(ByLatest, 0, len(vs))
	byString := make(map[*version.Version]string, len(vs))
	for _, s := range vs {
		v, err := NewVersion(s)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
		byString[v] = s
	}
	if len(parsed) == 0 {
		return ""
	}
	sort.Sort(parsed)
	return byString[parsed[len(parsed)-1]]
}
