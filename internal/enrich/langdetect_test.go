package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesLanguageKorean(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "pure korean", text: "환율이 사상 최고치를 기록했다", want: true},
		{name: "korean with brand name", text: "삼성전자 Galaxy 신제품 공개", want: true},
		{name: "english", text: "Markets rally on strong earnings", want: false},
		{name: "english with one korean word", text: "What does 안녕 mean in Korean culture and language", want: false},
		{name: "empty", text: "", want: false},
		{name: "digits only", text: "2026 100%", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesLanguage(tc.text, "ko"))
		})
	}
}

func TestMatchesLanguageJapanese(t *testing.T) {
	assert.True(t, MatchesLanguage("円相場が急落している", "ja"))
	assert.False(t, MatchesLanguage("Yen falls sharply against dollar", "ja"))
}

func TestMatchesLanguageUnknownTarget(t *testing.T) {
	assert.False(t, MatchesLanguage("anything at all", "fr"))
}
