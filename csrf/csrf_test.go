package csrf_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/csrf"
)

var secret = bytes.Repeat([]byte("k"), 32)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]csrf.Mode{
		"":                  csrf.ModeNone,
		"none":              csrf.ModeNone,
		"VIA_TOKEN":         csrf.ModeViaToken,
		"via_custom_header": csrf.ModeViaCustomHeader,
	} {
		got, err := csrf.ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := csrf.ParseMode("cookie")
	require.Error(t, err)
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := csrf.New(csrf.ModeViaToken, []byte("short"), "")
	require.Error(t, err)

	g, err := csrf.New(csrf.ModeViaCustomHeader, nil, "")
	require.NoError(t, err)
	require.Equal(t, csrf.DefaultHeader, g.Header())
}

func TestModeNoneAlwaysPasses(t *testing.T) {
	g, err := csrf.New(csrf.ModeNone, nil, "")
	require.NoError(t, err)

	tok, err := g.Issue("h1")
	require.NoError(t, err)
	require.Empty(t, tok)
	require.NoError(t, g.Verify("h1", "", csrf.Request{}))
}

func TestViaCustomHeader(t *testing.T) {
	g, err := csrf.New(csrf.ModeViaCustomHeader, nil, "x-requested-with")
	require.NoError(t, err)

	require.ErrorIs(t, g.Verify("h1", "", csrf.Request{}), csrf.ErrCheckFailed)
	require.NoError(t, g.Verify("h1", "", csrf.Request{HasCustomHeader: true}))
}

func TestViaToken(t *testing.T) {
	g, err := csrf.New(csrf.ModeViaToken, secret, "")
	require.NoError(t, err)

	tok, err := g.Issue("h1")
	require.NoError(t, err)
	require.Contains(t, tok, ".")

	require.NoError(t, g.Verify("h1", tok, csrf.Request{Token: tok}))

	// Missing or mismatched token.
	require.ErrorIs(t, g.Verify("h1", tok, csrf.Request{}), csrf.ErrCheckFailed)
	other, err := g.Issue("h1")
	require.NoError(t, err)
	require.ErrorIs(t, g.Verify("h1", tok, csrf.Request{Token: other}), csrf.ErrCheckFailed)

	// A token minted for another session is rejected even if echoed verbatim.
	foreign, err := g.Issue("h2")
	require.NoError(t, err)
	require.ErrorIs(t, g.Verify("h1", foreign, csrf.Request{Token: foreign}), csrf.ErrCheckFailed)

	// Tampered signature.
	nonce, _, _ := strings.Cut(tok, ".")
	forged := nonce + ".AAAA"
	require.ErrorIs(t, g.Verify("h1", forged, csrf.Request{Token: forged}), csrf.ErrCheckFailed)
}

func TestViaTokenSecretsDiffer(t *testing.T) {
	a, err := csrf.New(csrf.ModeViaToken, secret, "")
	require.NoError(t, err)
	b, err := csrf.New(csrf.ModeViaToken, bytes.Repeat([]byte("z"), 32), "")
	require.NoError(t, err)

	tok, err := a.Issue("h1")
	require.NoError(t, err)
	require.ErrorIs(t, b.Verify("h1", tok, csrf.Request{Token: tok}), csrf.ErrCheckFailed)
}
