// Package announce turns daily result announcements from the chat feed into
// per-participant claims for a single puzzle.
package announce

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

const DefaultHeader = "**Your group is on"

var (
	// DefaultFooterPattern captures the puzzle number of a panel footer.
	DefaultFooterPattern = regexp.MustCompile(`(?i)Wordle\s*No\.?\s*(\d+)`)

	resultLine = regexp.MustCompile(`^([1-6Xx])/6:\s*(.*)$`)
	reference  = regexp.MustCompile(`<@!?(\d+)>`)
)

// Announcement is one inbound chat event. Panel is set for structured
// messages; Mentions is the channel-supplied list of referenced participants.
type Announcement struct {
	Source   string
	ID       string
	Text     string
	Mentions []Mention
	Panel    *Panel
}

type Mention struct {
	ID   string
	Name string
}

type Panel struct {
	Footer      string
	Description string
	Fields      []Field
}

type Field struct {
	Name  string
	Value string
}

// Claim attributes an outcome to a raw participant token. Tokens are either
// canonical references ("<@123>") or bare words left for the resolver.
type Claim struct {
	Token    string
	Attempts domain.Attempts
}

// Result is the extracted content of one announcement.
type Result struct {
	PuzzleID string
	Claims   []Claim
}

type Options struct {
	// Channel restricts extraction to one source. Empty accepts every source.
	Channel string
	// Header is the prefix a plain-text announcement must start with.
	Header string
	// FooterPattern must match a panel footer; group 1 is the puzzle number.
	FooterPattern *regexp.Regexp
}

type Extractor struct {
	channel string
	header  string
	footer  *regexp.Regexp
}

func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		channel: strings.TrimSpace(opts.Channel),
		header:  opts.Header,
		footer:  opts.FooterPattern,
	}
	if strings.TrimSpace(e.header) == "" {
		e.header = DefaultHeader
	}
	if e.footer == nil {
		e.footer = DefaultFooterPattern
	}
	return e
}

// Extract returns the claims of a result announcement. The second return value
// is false when the input is not an announcement this extractor understands.
func (e *Extractor) Extract(a Announcement) (*Result, bool) {
	if e.channel != "" && strings.TrimSpace(a.Source) != e.channel {
		return nil, false
	}

	var (
		puzzle string
		lines  []string
	)
	if a.Panel != nil {
		m := e.footer.FindStringSubmatch(a.Panel.Footer)
		if m == nil {
			return nil, false
		}
		puzzle = m[1]
		lines = panelLines(a.Panel)
	} else {
		if !strings.HasPrefix(a.Text, e.header) || strings.TrimSpace(a.ID) == "" {
			return nil, false
		}
		puzzle = strings.TrimSpace(a.ID)
		lines = strings.Split(a.Text, "\n")
	}

	res := &Result{PuzzleID: puzzle}
	seen := make(map[Claim]struct{})
	mentions := longestNameFirst(a.Mentions)
	for _, raw := range lines {
		attempts, rest, ok := parseLine(raw)
		if !ok {
			continue
		}
		for _, tok := range lineTokens(rest, mentions) {
			c := Claim{Token: tok, Attempts: attempts}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			res.Claims = append(res.Claims, c)
		}
	}
	if len(res.Claims) == 0 {
		return nil, false
	}
	return res, true
}

// panelLines collects result lines from a panel body, or from its labeled
// fields when the body is empty.
func panelLines(p *Panel) []string {
	if strings.TrimSpace(p.Description) != "" {
		return strings.Split(p.Description, "\n")
	}
	var lines []string
	for _, f := range p.Fields {
		if _, rest, ok := parseLine(f.Name); ok {
			if strings.TrimSpace(rest) == "" {
				lines = append(lines, stripDecoration(f.Name)+" "+strings.ReplaceAll(f.Value, "\n", " "))
			} else {
				lines = append(lines, f.Name)
			}
			continue
		}
		for _, v := range strings.Split(f.Value, "\n") {
			if _, _, ok := parseLine(v); ok {
				lines = append(lines, v)
			}
		}
	}
	return lines
}

func parseLine(raw string) (domain.Attempts, string, bool) {
	m := resultLine.FindStringSubmatch(stripDecoration(raw))
	if m == nil {
		return 0, "", false
	}
	attempts, err := domain.ParseAttempts(m[1])
	if err != nil {
		return 0, "", false
	}
	return attempts, m[2], true
}

// stripDecoration drops leading marker glyphs (crowns, bullets, markdown) and
// surrounding whitespace.
func stripDecoration(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// longestNameFirst orders mentions so that a display name which is a prefix of
// another ("Al", "Alice") never claims the longer name's text.
func longestNameFirst(mentions []Mention) []Mention {
	out := append([]Mention(nil), mentions...)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(strings.TrimSpace(out[i].Name)) > utf8.RuneCountInString(strings.TrimSpace(out[j].Name))
	})
	return out
}

// lineTokens returns the participant tokens of a result line. Mentions supplied
// by the channel are matched first, in the order given; whatever text remains
// is scanned for reference tokens and bare words.
func lineTokens(rest string, mentions []Mention) []string {
	var tokens []string
	for _, m := range mentions {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			continue
		}
		found := false
		for _, form := range []string{"<@" + id + ">", "<@!" + id + ">"} {
			if strings.Contains(rest, form) {
				rest = strings.ReplaceAll(rest, form, " ")
				found = true
			}
		}
		if name := strings.TrimSpace(m.Name); name != "" {
			var hit bool
			rest, hit = removeMention(rest, "@"+name)
			found = found || hit
		}
		if found {
			tokens = append(tokens, Reference(id))
		}
	}

	for _, sm := range reference.FindAllStringSubmatch(rest, -1) {
		tokens = append(tokens, Reference(sm[1]))
	}
	rest = reference.ReplaceAllString(rest, " ")

	words := strings.FieldsFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	for _, w := range words {
		w = strings.Trim(w, "*_~`.;:|")
		if w == "" || w == "@" {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Reference is the canonical token form of an explicit participant id.
func Reference(id string) string { return "<@" + strings.TrimSpace(id) + ">" }

// ReferenceID returns the id embedded in an explicit reference token.
func ReferenceID(token string) (string, bool) {
	m := reference.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil || m[0] != strings.TrimSpace(token) {
		return "", false
	}
	return m[1], true
}

// removeMention removes every case-insensitive occurrence of sub from s that
// ends at a word boundary, so "@Al" does not match inside "@Alice".
func removeMention(s, sub string) (string, bool) {
	if sub == "" {
		return s, false
	}
	lower, lsub := strings.ToLower(s), strings.ToLower(sub)
	if len(lower) != len(s) {
		lower, lsub = s, sub
	}
	var b strings.Builder
	hit, last := false, 0
	for at := 0; at < len(lower); {
		i := strings.Index(lower[at:], lsub)
		if i < 0 {
			break
		}
		start, end := at+i, at+i+len(lsub)
		if !wordEnd(s, end) {
			at = start + 1
			continue
		}
		b.WriteString(s[last:start])
		b.WriteByte(' ')
		last, at, hit = end, end, true
	}
	if !hit {
		return s, false
	}
	b.WriteString(s[last:])
	return b.String(), true
}

func wordEnd(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
