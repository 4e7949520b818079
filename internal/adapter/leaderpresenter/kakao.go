package leaderpresenter

import "strings"

const (
	kakaoSeeMorePadding = 500
	kakaoZeroWidthSpace = "\u200b"
)

// applySeeMore prefixes text with the instruction followed by enough
// zero-width spaces that KakaoTalk collapses the rest behind '전체보기'.
func applySeeMore(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	instruction = strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(instruction) + kakaoSeeMorePadding*len(kakaoZeroWidthSpace) + len(text) + 1)
	b.WriteString(instruction)
	b.WriteString(strings.Repeat(kakaoZeroWidthSpace, kakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}
