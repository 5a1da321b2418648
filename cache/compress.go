package cache

import (
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CompressedMarker is set to true on any document or substructure the
// Compressor reduced. Readers seeing it know the data is lossy.
const CompressedMarker = "_compressed"

// CompressorConfig configures field-aware compression of JSON documents.
// Zero fields take the defaults noted on each.
type CompressorConfig struct {
	// PreviewFields are large embedded blobs (data URLs). Default: filePreview.
	PreviewFields []string

	// PreviewLimit is the length above which a preview is truncated. Default: 100000.
	PreviewLimit int

	// PreviewKeep is the prefix kept from a truncated preview. Default: 50000.
	PreviewKeep int

	// ResultFields are verbose nested analysis results.
	// Default: analysisResults, geminiResults.
	ResultFields []string

	// ResultLimit is the serialized size above which a result is reduced
	// to ResultWhitelist. Default: 50000.
	ResultLimit int

	// ResultWhitelist are the scalar fields kept from a reduced result.
	ResultWhitelist []string
}

// DefaultResultWhitelist lists the score fields kept from reduced results.
var DefaultResultWhitelist = []string{
	"brand_compliance_score",
	"messaging_intent_score",
	"funnel_compatibility_score",
	"channel_compliance_score",
	"purchase_intent_score",
	"overall_score",
	"summary",
}

// Compressor performs lossy, field-aware reduction of JSON objects.
type Compressor struct {
	cfg CompressorConfig
}

// NewCompressor creates a compressor, filling zero fields with defaults.
func NewCompressor(cfg CompressorConfig) *Compressor {
	if len(cfg.PreviewFields) == 0 {
		cfg.PreviewFields = []string{"filePreview"}
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = 100000
	}
	if cfg.PreviewKeep <= 0 || cfg.PreviewKeep > cfg.PreviewLimit {
		cfg.PreviewKeep = cfg.PreviewLimit / 2
	}
	if len(cfg.ResultFields) == 0 {
		cfg.ResultFields = []string{"analysisResults", "geminiResults"}
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 50000
	}
	if len(cfg.ResultWhitelist) == 0 {
		cfg.ResultWhitelist = DefaultResultWhitelist
	}
	return &Compressor{cfg: cfg}
}

// Compress returns doc with oversized previews truncated and verbose
// results reduced. changed reports whether anything was reduced, in which
// case the top-level CompressedMarker is set. Values that are not JSON
// objects are returned unchanged.
func (c *Compressor) Compress(doc string) (out string, changed bool, err error) {
	if !gjson.Parse(doc).IsObject() {
		return doc, false, nil
	}
	out = doc

	for _, field := range c.cfg.PreviewFields {
		path := gjson.Escape(field)
		r := gjson.Get(out, path)
		if r.Type != gjson.String || len(r.Str) <= c.cfg.PreviewLimit {
			continue
		}
		out, err = sjson.Set(out, path, truncate(r.Str, c.cfg.PreviewKeep)+"...")
		if err != nil {
			return doc, false, fmt.Errorf("truncate %s: %w", field, err)
		}
		changed = true
	}

	for _, field := range c.cfg.ResultFields {
		path := gjson.Escape(field)
		r := gjson.Get(out, path)
		if !r.IsObject() || len(r.Raw) <= c.cfg.ResultLimit {
			continue
		}
		reduced, err := c.reduceResult(r)
		if err != nil {
			return doc, false, fmt.Errorf("reduce %s: %w", field, err)
		}
		out, err = sjson.SetRaw(out, path, reduced)
		if err != nil {
			return doc, false, fmt.Errorf("reduce %s: %w", field, err)
		}
		changed = true
	}

	if changed {
		out, err = sjson.Set(out, CompressedMarker, true)
		if err != nil {
			return doc, false, err
		}
	}
	return out, changed, nil
}

func (c *Compressor) reduceResult(r gjson.Result) (string, error) {
	reduced := "{}"
	var err error
	for _, field := range c.cfg.ResultWhitelist {
		path := gjson.Escape(field)
		v := r.Get(path)
		if !v.Exists() {
			continue
		}
		if reduced, err = sjson.SetRaw(reduced, path, v.Raw); err != nil {
			return "", err
		}
	}
	return sjson.Set(reduced, CompressedMarker, true)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
