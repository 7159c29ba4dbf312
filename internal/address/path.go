package address

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// rootSegment names the body in serialized paths. It is not an index and
// is skipped on decode.
const rootSegment = "BODY"

const anchorPrefix = `//*[@id=`

var anchorPattern = regexp.MustCompile(`^//\*\[@id="([^"]+)"\]`)

// Path is a structural path: sibling indices from the body, or from the
// element named by Anchor when set.
type Path struct {
	Anchor  string
	Indices []int
}

// IsRoot reports whether p addresses the body itself.
func (p Path) IsRoot() bool {
	return p.Anchor == "" && len(p.Indices) == 0
}

// String serializes p as //*[@id="x"]/1/2 or BODY/1/2.
func (p Path) String() string {
	var b strings.Builder
	if p.Anchor != "" {
		b.WriteString(`//*[@id="`)
		b.WriteString(p.Anchor)
		b.WriteString(`"]`)
	} else {
		b.WriteString(rootSegment)
	}
	for _, i := range p.Indices {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// ParsePath reads a serialized path. Segments that are not integers are
// ignored, which accepts the BODY prefix and stray separators. An empty
// string or "/" is the body. An anchor that does not close as //*[@id="x"]
// is rejected with ErrMalformed rather than read as a body path.
func ParsePath(s string) (Path, error) {
	var p Path
	s = strings.TrimSpace(s)
	if m := anchorPattern.FindStringSubmatch(s); m != nil {
		p.Anchor = m[1]
		s = s[len(m[0]):]
	} else if strings.HasPrefix(s, anchorPrefix) {
		return Path{}, fmt.Errorf("%w: path %q", ErrMalformed, s)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == "" {
			continue
		}
		i, err := strconv.Atoi(seg)
		if err != nil {
			continue
		}
		p.Indices = append(p.Indices, i)
	}
	return p, nil
}

// MustParsePath is ParsePath for literal paths known to be well formed.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// LooksLikePath reports whether s is a bare path string as written by older
// sessions: anything carrying a path separator.
func LooksLikePath(s string) bool {
	return strings.Contains(s, "/")
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePath(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
