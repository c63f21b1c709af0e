package correos

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var authTokenPattern = regexp.MustCompile(`Liferay\.authToken\s*=\s*'([^']+)'`)

// extractAuthToken scans inline <script> bodies for the Liferay auth token.
// It returns "" when no script assigns one.
func extractAuthToken(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inScript := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", nil
			}
			return "", z.Err()

		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = atom.Lookup(name) == atom.Script

		case html.EndTagToken:
			inScript = false

		case html.TextToken:
			if !inScript {
				continue
			}
			text := string(z.Text())
			if !strings.Contains(text, "authToken") {
				continue
			}
			if m := authTokenPattern.FindStringSubmatch(text); m != nil {
				return m[1], nil
			}
		}
	}
}
