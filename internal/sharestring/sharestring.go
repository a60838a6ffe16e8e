// Package sharestring implements the share-string wire format spec §6
// names: a deflate-compressed, Base64-encoded byte sequence carrying a
// small text header followed by a page's JSON document. It is the one
// persisted external interface this core owns end to end.
package sharestring

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ironforge-labs/factoryplan/internal/errors"
	"github.com/ironforge-labs/factoryplan/internal/logger"
)

var log = logger.WithComponent("ShareString")

const (
	magicHeader  = "YAFC"
	pageHeader   = "ProjectPage"
	currentMajor = 2
	currentMinor = 1
)

// Version is the "<major>.<minor>" header line.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Current is the version this build writes.
func Current() Version { return Version{Major: currentMajor, Minor: currentMinor} }

// Page is the JSON document a share-string carries: the minimal shape
// needed to reconstruct a production page (recipe rows, links, and
// their solve-independent configuration — not solve outputs, which are
// always recomputed on load).
type Page struct {
	// ID identifies this page across copy/paste round trips (e.g. so a
	// re-imported page can be recognized as "the same page" rather than
	// a new one); assigned by Encode on first write if empty.
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Rows  []PageRow  `json:"rows"`
	Links []PageLink `json:"links"`
}

// PageRow is one serialized RecipeRow, identifying its recipe/crafter/
// fuel by catalog name rather than pointer (names are the only stable
// cross-version identifier a share string can carry).
type PageRow struct {
	Recipe         string  `json:"recipe"`
	Crafter        string  `json:"crafter,omitempty"`
	Fuel           string  `json:"fuel,omitempty"`
	Enabled        bool    `json:"enabled"`
	FixedBuildings float64 `json:"fixedBuildings,omitempty"`
	BuiltBuildings float64 `json:"builtBuildings,omitempty"`
}

// PageLink is one serialized ProductionLink.
type PageLink struct {
	Goods     string  `json:"goods"`
	Amount    float64 `json:"amount"`
	Algorithm int     `json:"algorithm"`
}

// Encode writes header + JSON(page), deflates it, and Base64-encodes
// the result for clipboard transport (spec §6).
func Encode(page Page) (string, error) {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	body, err := json.Marshal(page)
	if err != nil {
		return "", errors.New(errors.KindShareStringInvalid, "sharestring.Encode", err)
	}

	var raw bytes.Buffer
	raw.WriteString(magicHeader + "\n")
	raw.WriteString(pageHeader + "\n")
	raw.WriteString(Current().String() + "\n")
	raw.WriteString("\t\n") // reserved1\treserved2, both empty on write
	raw.WriteString("\n")
	raw.Write(body)

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		return "", errors.New(errors.KindShareStringInvalid, "sharestring.Encode", err)
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		return "", errors.New(errors.KindShareStringInvalid, "sharestring.Encode", err)
	}
	if err := w.Close(); err != nil {
		return "", errors.New(errors.KindShareStringInvalid, "sharestring.Encode", err)
	}

	return base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}

// Decode result.Warning is set (non-nil error returned alongside a
// valid Page) when the string is readable but carries a newer minor
// version than this build understands (spec §6: "warn (non-fatal) on
// any newer version").
type Decoded struct {
	Page    Page
	Version Version
	Warning error
}

// Decode reverses Encode: Base64-decode, inflate, parse and validate
// the header, then unmarshal the JSON document (spec §6).
func Decode(s string) (*Decoded, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New(errors.KindShareStringInvalid, "sharestring.Decode", fmt.Errorf("not valid base64: %w", err))
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(errors.KindShareStringInvalid, "sharestring.Decode", fmt.Errorf("not valid deflate stream: %w", err))
	}

	version, rest, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(rest, &page); err != nil {
		return nil, errors.New(errors.KindShareStringInvalid, "sharestring.Decode", fmt.Errorf("malformed page document: %w", err))
	}

	result := &Decoded{Page: page, Version: version}
	if version.Major == currentMajor && version.Minor > currentMinor {
		result.Warning = fmt.Errorf("share string written by a newer minor version (%s); some fields may be ignored", version)
		log.Warn("decoding share string from newer minor version %s", version)
	}
	return result, nil
}

// parseHeader validates and strips the five header lines, returning
// the remaining bytes (the JSON document) and the parsed version.
func parseHeader(raw []byte) (Version, []byte, error) {
	const op = "sharestring.parseHeader"

	lines, rest, err := splitLines(raw, 5)
	if err != nil {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, err)
	}

	if lines[0] != magicHeader {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, fmt.Errorf("bad magic header %q", lines[0]))
	}
	if lines[1] != pageHeader {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, fmt.Errorf("bad page header %q", lines[1]))
	}

	version, err := parseVersion(lines[2])
	if err != nil {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, err)
	}
	if version.Major > currentMajor {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, fmt.Errorf("share string version %s is newer than this build supports (%s)", version, Current()))
	}

	reserved := strings.SplitN(lines[3], "\t", 2)
	if len(reserved) == 2 && reserved[1] != "" {
		// Open Question resolution (SPEC_FULL §12): reserved2 non-empty is
		// a hard rejection until a future version defines its meaning.
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, fmt.Errorf("reserved field 2 is non-empty: %q", reserved[1]))
	}

	if lines[4] != "" {
		return Version{}, nil, errors.New(errors.KindShareStringInvalid, op, fmt.Errorf("expected blank separator line, got %q", lines[4]))
	}

	return version, rest, nil
}

// splitLines peels off n newline-terminated lines (without their
// trailing '\n') and returns the remaining bytes.
func splitLines(raw []byte, n int) ([]string, []byte, error) {
	lines := make([]string, 0, n)
	rest := raw
	for i := 0; i < n; i++ {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			return nil, nil, fmt.Errorf("truncated header: expected %d lines, got %d", n, len(lines))
		}
		lines = append(lines, string(rest[:idx]))
		rest = rest[idx+1:]
	}
	return lines, rest, nil
}

func parseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	ma, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	return Version{Major: ma, Minor: mi}, nil
}
