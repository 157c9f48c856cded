// Package labdirectory holds the curated table of recognized laboratories
// and the fuzzy name matching used by document verification. The directory
// is static reference data: loaded once, indexed up front, and read-only
// afterwards, so it is safe for unsynchronized concurrent reads.
package labdirectory

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

//go:embed labs.json
var embeddedFS embed.FS

// minSubstringLength guards the substring fallback tier: containment only
// counts when the shorter side is at least this long, so fragments like
// "labs" cannot match into "lifelabs".
const minSubstringLength = 5

// minOverlapWordLength is the minimum length for a single-word overlap
// match, guarding against short common words ("labs", "health").
const minOverlapWordLength = 6

// overlapCoverage is the share of a candidate lab's words a multi-word
// query must cover in the word-overlap tier.
const overlapCoverage = 0.8

// genericLabWords never count as a single-word overlap match on their own,
// regardless of length; they appear in too many facility names.
var genericLabWords = map[string]bool{
	"labs":         true,
	"laboratory":   true,
	"laboratories": true,
	"health":       true,
	"medical":      true,
	"public":       true,
	"clinic":       true,
	"clinical":     true,
	"services":     true,
	"centre":       true,
	"center":       true,
	"diagnostics":  true,
	"group":        true,
	"groupe":       true,
}

// Institutional suffixes stripped from the end of a lab name during
// normalization, longest first so compound suffixes win.
var nameSuffixes = []string{
	"medical laboratory services",
	"laboratory and health services centre",
	"medical laboratory",
	"medical labs",
	"laboratory services",
	"laboratory",
	"labs",
	"incorporated",
	"inc",
	"ltd",
	"llc",
	"corp",
}

// Directory is the indexed, immutable lab lookup structure.
type Directory struct {
	entries         []entities.RecognizedLab
	byAbbrev        map[string]int
	byName          map[string]int
	abbrevExpansion map[string]string
}

// New builds a Directory from entries, precomputing the lookup indexes.
func New(entries []entities.RecognizedLab) *Directory {
	d := &Directory{
		entries:         entries,
		byAbbrev:        make(map[string]int),
		byName:          make(map[string]int),
		abbrevExpansion: make(map[string]string),
	}

	// Abbreviation index first: normalization expands abbreviations, so
	// the name index below depends on it.
	for i, lab := range entries {
		for _, abbrev := range lab.Abbreviations {
			key := foldKey(abbrev)
			if _, exists := d.byAbbrev[key]; !exists {
				d.byAbbrev[key] = i
				d.abbrevExpansion[key] = d.normalizeWithoutExpansion(lab.CanonicalName)
			}
		}
	}

	for i, lab := range entries {
		names := append([]string{lab.CanonicalName}, lab.Variants...)
		for _, name := range names {
			for _, key := range []string{foldKey(name), d.NormalizeLabName(name)} {
				if key == "" {
					continue
				}
				if _, exists := d.byName[key]; !exists {
					d.byName[key] = i
				}
			}
		}
	}

	return d
}

// Load builds the directory from the embedded dataset.
func Load() (*Directory, error) {
	raw, err := embeddedFS.ReadFile("labs.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded lab directory: %w", err)
	}
	return parse(raw)
}

// LoadFile builds the directory from an override dataset on disk, keeping
// the same format as the embedded one.
func LoadFile(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lab directory %s: %w", path, err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Directory, error) {
	var entries []entities.RecognizedLab
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lab directory: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("lab directory is empty")
	}
	for _, lab := range entries {
		if strings.TrimSpace(lab.ID) == "" || strings.TrimSpace(lab.CanonicalName) == "" {
			return nil, fmt.Errorf("lab directory entry missing id or canonical name: %+v", lab)
		}
	}
	return New(entries), nil
}

// Entries returns all directory entries.
func (d *Directory) Entries() []entities.RecognizedLab {
	return d.entries
}

// ByRegion returns the entries registered for a region code.
func (d *Directory) ByRegion(region string) []entities.RecognizedLab {
	key := foldKey(region)
	var results []entities.RecognizedLab
	for _, lab := range d.entries {
		if foldKey(lab.Region) == key {
			results = append(results, lab)
		}
	}
	return results
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// NormalizeLabName lowercases and folds raw, converts a trailing
// "laboratories" to "labs", iteratively strips institutional suffixes and
// expands a recognized abbreviation to its canonical form.
func (d *Directory) NormalizeLabName(raw string) string {
	name := d.normalizeWithoutExpansion(raw)
	if expanded, ok := d.abbrevExpansion[name]; ok {
		return expanded
	}
	return name
}

func (d *Directory) normalizeWithoutExpansion(raw string) string {
	name := foldKey(raw)

	if name == "laboratories" || strings.HasSuffix(name, " laboratories") {
		name = strings.TrimSuffix(name, "laboratories") + "labs"
	}

	for {
		stripped := name
		for _, suffix := range nameSuffixes {
			if name == suffix {
				// A bare suffix is not a lab name; keep it rather than
				// normalizing to the empty string.
				continue
			}
			if strings.HasSuffix(name, " "+suffix) {
				stripped = strings.TrimSpace(strings.TrimSuffix(name, suffix))
				break
			}
		}
		if stripped == name {
			break
		}
		name = stripped
	}

	return name
}

// MatchesRecognizedLab reports whether raw resolves to a directory entry.
func (d *Directory) MatchesRecognizedLab(raw string) bool {
	_, ok := d.FindLab(raw)
	return ok
}

// FindLab resolves raw to a directory entry using three tiers: exact match
// (abbreviations, then canonical names and variants), substring containment
// in either direction, then word overlap.
func (d *Directory) FindLab(raw string) (entities.RecognizedLab, bool) {
	folded := foldKey(raw)
	if folded == "" {
		return entities.RecognizedLab{}, false
	}

	if i, ok := d.byAbbrev[folded]; ok {
		return d.entries[i], true
	}

	normalized := d.NormalizeLabName(raw)
	if i, ok := d.byName[folded]; ok {
		return d.entries[i], true
	}
	if i, ok := d.byName[normalized]; ok {
		return d.entries[i], true
	}

	if lab, ok := d.findBySubstring(normalized); ok {
		return lab, true
	}

	return d.findByWordOverlap(normalized)
}

func (d *Directory) findBySubstring(normalized string) (entities.RecognizedLab, bool) {
	if genericLabWords[normalized] {
		return entities.RecognizedLab{}, false
	}
	for i, lab := range d.entries {
		for _, candidate := range d.candidateKeys(lab) {
			shorter := len(candidate)
			if len(normalized) < shorter {
				shorter = len(normalized)
			}
			if shorter < minSubstringLength {
				continue
			}
			if strings.Contains(candidate, normalized) || strings.Contains(normalized, candidate) {
				return d.entries[i], true
			}
		}
	}
	return entities.RecognizedLab{}, false
}

func (d *Directory) findByWordOverlap(normalized string) (entities.RecognizedLab, bool) {
	queryWords := strings.Fields(normalized)
	if len(queryWords) == 0 {
		return entities.RecognizedLab{}, false
	}

	for i, lab := range d.entries {
		candidateWords := strings.Fields(d.normalizeWithoutExpansion(lab.CanonicalName))
		if len(candidateWords) == 0 {
			continue
		}

		candidateSet := make(map[string]bool, len(candidateWords))
		for _, w := range candidateWords {
			candidateSet[w] = true
		}

		if len(queryWords) == 1 {
			word := queryWords[0]
			if len(word) >= minOverlapWordLength && !genericLabWords[word] && candidateSet[word] {
				return d.entries[i], true
			}
			continue
		}

		matched := 0
		for _, w := range queryWords {
			if candidateSet[w] {
				matched++
			}
		}
		if float64(matched) >= overlapCoverage*float64(len(candidateWords)) {
			return d.entries[i], true
		}
	}

	return entities.RecognizedLab{}, false
}

// candidateKeys returns the comparable name forms for a lab entry.
func (d *Directory) candidateKeys(lab entities.RecognizedLab) []string {
	keys := []string{foldKey(lab.CanonicalName), d.normalizeWithoutExpansion(lab.CanonicalName)}
	for _, variant := range lab.Variants {
		keys = append(keys, foldKey(variant))
	}
	return keys
}
