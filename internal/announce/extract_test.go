package announce

import (
	"testing"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

func newTestExtractor() *Extractor {
	return NewExtractor(Options{Channel: "room-1"})
}

func claimSet(claims []Claim) map[Claim]bool {
	out := make(map[Claim]bool, len(claims))
	for _, c := range claims {
		out[c] = true
	}
	return out
}

func TestExtractPlainText(t *testing.T) {
	e := newTestExtractor()
	text := "**Your group is on a 12 day streak!** 🔥 Here are yesterday's results:\n" +
		"👑 3/6: <@111> <@!222>\n" +
		"5/6: @Carol\n" +
		"X/6: <@333>\n" +
		"not a result line"
	res, ok := e.Extract(Announcement{Source: "room-1", ID: "msg-9", Text: text})
	if !ok { t.Fatalf("expected a result") }
	if res.PuzzleID != "msg-9" { t.Fatalf("puzzle = %q", res.PuzzleID) }

	want := []Claim{
		{Token: "<@111>", Attempts: 3},
		{Token: "<@222>", Attempts: 3},
		{Token: "@Carol", Attempts: 5},
		{Token: "<@333>", Attempts: domain.Failed},
	}
	got := claimSet(res.Claims)
	if len(res.Claims) != len(want) { t.Fatalf("claims = %v", res.Claims) }
	for _, c := range want {
		if !got[c] { t.Fatalf("missing claim %v in %v", c, res.Claims) }
	}
}

func TestExtractIgnoresWrongChannelAndHeader(t *testing.T) {
	e := newTestExtractor()
	text := "**Your group is on a 1 day streak!**\n3/6: <@1>"
	if _, ok := e.Extract(Announcement{Source: "room-2", ID: "m", Text: text}); ok {
		t.Fatalf("wrong channel accepted")
	}
	if _, ok := e.Extract(Announcement{Source: "room-1", ID: "m", Text: "3/6: <@1>"}); ok {
		t.Fatalf("missing header accepted")
	}
	if _, ok := e.Extract(Announcement{Source: "room-1", ID: "m", Text: "**Your group is on fire**\nnothing here"}); ok {
		t.Fatalf("announcement without result lines accepted")
	}
}

func TestExtractMentionsPreferredPerLine(t *testing.T) {
	e := newTestExtractor()
	text := "**Your group is on a 3 day streak!**\n2/6: @Alice\n4/6: <@222>"
	a := Announcement{
		Source:   "room-1",
		ID:       "m1",
		Text:     text,
		Mentions: []Mention{{ID: "111", Name: "alice"}, {ID: "222", Name: "Bob"}},
	}
	res, ok := e.Extract(a)
	if !ok { t.Fatalf("expected a result") }
	got := claimSet(res.Claims)
	if len(res.Claims) != 2 || !got[Claim{Token: "<@111>", Attempts: 2}] || !got[Claim{Token: "<@222>", Attempts: 4}] {
		t.Fatalf("unexpected claims: %v", res.Claims)
	}
}

func TestExtractMentionNamesSharingAPrefix(t *testing.T) {
	e := newTestExtractor()
	cases := []struct {
		name     string
		text     string
		mentions []Mention
		want     []Claim
	}{
		{
			name:     "al and alice",
			text:     "**Your group is on a streak\n3/6: @Alice\n5/6: @Al",
			mentions: []Mention{{ID: "1", Name: "Al"}, {ID: "2", Name: "Alice"}},
			want:     []Claim{{Token: "<@2>", Attempts: 3}, {Token: "<@1>", Attempts: 5}},
		},
		{
			name:     "kim and kim minsu",
			text:     "**Your group is on a streak\n2/6: @Kim Minsu, @Kim\nX/6: @kim minsu",
			mentions: []Mention{{ID: "3", Name: "Kim"}, {ID: "4", Name: "Kim Minsu"}},
			want:     []Claim{{Token: "<@4>", Attempts: 2}, {Token: "<@3>", Attempts: 2}, {Token: "<@4>", Attempts: domain.Failed}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := e.Extract(Announcement{Source: "room-1", ID: "m1", Text: tc.text, Mentions: tc.mentions})
			if !ok { t.Fatalf("expected a result") }
			got := claimSet(res.Claims)
			if len(res.Claims) != len(tc.want) { t.Fatalf("claims = %v", res.Claims) }
			for _, c := range tc.want {
				if !got[c] { t.Fatalf("missing %v in %v", c, res.Claims) }
			}
		})
	}
}

func TestExtractRequiresColonAfterSix(t *testing.T) {
	e := newTestExtractor()
	text := "**Your group is on a streak\n3/6 <@1>\n4/6: <@2>"
	res, ok := e.Extract(Announcement{Source: "room-1", ID: "m1", Text: text})
	if !ok { t.Fatalf("expected a result") }
	if len(res.Claims) != 1 || res.Claims[0] != (Claim{Token: "<@2>", Attempts: 4}) {
		t.Fatalf("claims = %v", res.Claims)
	}
	if _, ok := e.Extract(Announcement{Source: "room-1", ID: "m2", Text: "**Your group is on a streak\n3/6 <@1>"}); ok {
		t.Fatalf("line without colon must be ignored")
	}
}

func TestExtractDeduplicates(t *testing.T) {
	e := newTestExtractor()
	text := "**Your group is on a 3 day streak!**\n3/6: <@1> <@!1>\n3/6: <@1>"
	res, ok := e.Extract(Announcement{Source: "room-1", ID: "m", Text: text})
	if !ok { t.Fatalf("expected a result") }
	if len(res.Claims) != 1 { t.Fatalf("expected one claim, got %v", res.Claims) }
}

func TestExtractPanelDescription(t *testing.T) {
	e := newTestExtractor()
	a := Announcement{
		Source: "room-1",
		Panel: &Panel{
			Footer:      "Wordle No. 1234",
			Description: "🏆 1/6: <@7>\n• 6/6: dave, erin",
		},
	}
	res, ok := e.Extract(a)
	if !ok { t.Fatalf("expected a result") }
	if res.PuzzleID != "1234" { t.Fatalf("puzzle = %q", res.PuzzleID) }
	got := claimSet(res.Claims)
	for _, c := range []Claim{{"<@7>", 1}, {"dave", 6}, {"erin", 6}} {
		if !got[c] { t.Fatalf("missing %v in %v", c, res.Claims) }
	}
}

func TestExtractPanelFields(t *testing.T) {
	e := newTestExtractor()
	a := Announcement{
		Source: "room-1",
		Panel: &Panel{
			Footer: "wordle no 812",
			Fields: []Field{
				{Name: "Streak", Value: "5 days"},
				{Name: "2/6:", Value: "<@10> <@11>"},
				{Name: "Results", Value: "X/6: <@12>"},
			},
		},
	}
	res, ok := e.Extract(a)
	if !ok { t.Fatalf("expected a result") }
	if res.PuzzleID != "812" { t.Fatalf("puzzle = %q", res.PuzzleID) }
	got := claimSet(res.Claims)
	for _, c := range []Claim{{"<@10>", 2}, {"<@11>", 2}, {"<@12>", domain.Failed}} {
		if !got[c] { t.Fatalf("missing %v in %v", c, res.Claims) }
	}
}

func TestExtractPanelWithoutFooter(t *testing.T) {
	e := newTestExtractor()
	if _, ok := e.Extract(Announcement{Source: "room-1", Panel: &Panel{Description: "3/6: <@1>"}}); ok {
		t.Fatalf("panel without puzzle footer accepted")
	}
}

func TestReferenceID(t *testing.T) {
	if id, ok := ReferenceID("<@!42>"); !ok || id != "42" { t.Fatalf("got %q %v", id, ok) }
	if _, ok := ReferenceID("x<@42>"); ok { t.Fatalf("embedded reference accepted") }
}
