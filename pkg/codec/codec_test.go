package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantGroup string
		wantTitle string
	}{
		{name: "empty", raw: "", wantGroup: "", wantTitle: ""},
		{name: "plain", raw: "Just a title", wantGroup: "", wantTitle: "Just a title"},
		{name: "tagged", raw: "::Lore:: Dragons", wantGroup: "Lore", wantTitle: "Dragons"},
		{name: "unicode", raw: "::한글 그룹:: 제목", wantGroup: "한글 그룹", wantTitle: "제목"},
		{name: "broken prefix", raw: "::Broken: Title", wantGroup: "", wantTitle: "::Broken: Title"},
		{name: "leading colon", raw: ":::x:: y", wantGroup: "", wantTitle: ":::x:: y"},
		{name: "blank name", raw: "::   :: Title", wantGroup: "", wantTitle: "::   :: Title"},
		{name: "whitespace collapsed", raw: "::  Group \t A  ::   Title  ", wantGroup: "Group A", wantTitle: "Title"},
		{name: "no title", raw: "::Solo::", wantGroup: "Solo", wantTitle: ""},
		{name: "multiline title", raw: "::G:: first\nsecond", wantGroup: "G", wantTitle: "first\nsecond"},
		{name: "multiline name", raw: "::a\nb:: t", wantGroup: "a b", wantTitle: "t"},
		{name: "bare delimiter", raw: "::", wantGroup: "", wantTitle: "::"},
		{name: "unterminated", raw: "::abc", wantGroup: "", wantTitle: "::abc"},
		{name: "empty delimiters", raw: "::::", wantGroup: "", wantTitle: "::::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, title := Decode(tt.raw)
			assert.Equal(t, tt.wantGroup, group)
			assert.Equal(t, tt.wantTitle, title)
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "::Group A:: Title", Encode(" Group   A ", "  Title  "))
	assert.Equal(t, "::Solo::", Encode("Solo", "   "))
}

func TestRoundTrip(t *testing.T) {
	groups := []string{"Lore", "  spaced   out ", "한글", "a:b", "x y z"}
	titles := []string{"", "title", "  padded  ", "::not a prefix"}
	for _, g := range groups {
		_, err := ValidateGroupName(g)
		require.NoError(t, err, g)
		for _, ti := range titles {
			group, title := Decode(Encode(g, ti))
			assert.Equal(t, Normalize(g), group, "group for %q/%q", g, ti)
			assert.Equal(t, strings.TrimSpace(ti), title, "title for %q/%q", g, ti)
		}
	}
}

func TestValidateGroupName(t *testing.T) {
	name, err := ValidateGroupName("  My   Group ")
	require.NoError(t, err)
	assert.Equal(t, "My Group", name)

	for _, bad := range []string{"", "   ", "a::b", ":lead", "trail:"} {
		_, err := ValidateGroupName(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidName), bad)
	}
}

func TestRegroupAndRetitle(t *testing.T) {
	assert.Equal(t, "::New:: Title", Regroup("::Old:: Title", "New"))
	assert.Equal(t, "Title", Regroup("::Old:: Title", ""))
	assert.Equal(t, "::Add:: plain", Regroup("plain", "Add"))
	assert.Equal(t, "::G:: renamed", Retitle("::G:: old", "renamed"))
	assert.Equal(t, "renamed", Retitle("old", " renamed "))
}
