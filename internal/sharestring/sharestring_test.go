package sharestring_test

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ironforge-labs/factoryplan/internal/sharestring"
)

func samplePage() sharestring.Page {
	return sharestring.Page{
		Name: "iron plate line",
		Rows: []sharestring.PageRow{
			{Recipe: "iron-plate", Crafter: "stone-furnace", Enabled: true},
		},
		Links: []sharestring.PageLink{
			{Goods: "iron-plate", Amount: 1, Algorithm: 0},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	page := samplePage()
	encoded, err := sharestring.Encode(page)
	require.NoError(t, err)

	decoded, err := sharestring.Decode(encoded)
	require.NoError(t, err)
	require.Nil(t, decoded.Warning)
	require.NotEqual(t, uuid.Nil, decoded.Page.ID)
	page.ID = decoded.Page.ID
	require.Equal(t, page, decoded.Page)
	require.Equal(t, sharestring.Current(), decoded.Version)
}

func deflateEncode(t *testing.T, raw string) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeRejectsBadMagicHeader(t *testing.T) {
	raw := "NOTYAFC\nProjectPage\n2.1\n\t\n\n{}"
	_, err := sharestring.Decode(deflateEncode(t, raw))
	require.Error(t, err)
}

func TestDecodeRejectsFutureMajorVersion(t *testing.T) {
	raw := "YAFC\nProjectPage\n99.0\n\t\n\n{}"
	_, err := sharestring.Decode(deflateEncode(t, raw))
	require.Error(t, err)
}

func TestDecodeWarnsOnNewerMinorVersion(t *testing.T) {
	body := `{"name":"x","rows":[],"links":[]}`
	raw := "YAFC\nProjectPage\n2.99\n\t\n\n" + body
	decoded, err := sharestring.Decode(deflateEncode(t, raw))
	require.NoError(t, err)
	require.NotNil(t, decoded.Warning)
}

func TestDecodeRejectsNonEmptyReservedField2(t *testing.T) {
	body := `{"name":"x","rows":[],"links":[]}`
	raw := "YAFC\nProjectPage\n2.1\nfoo\tbar\n\n" + body
	_, err := sharestring.Decode(deflateEncode(t, raw))
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "reserved"))
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := sharestring.Decode(deflateEncode(t, "YAFC\nProjectPage\n"))
	require.Error(t, err)
}

func TestDecodeRejectsNotBase64(t *testing.T) {
	_, err := sharestring.Decode("not-valid-base64!!!")
	require.Error(t, err)
}
