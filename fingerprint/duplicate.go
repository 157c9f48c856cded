package fingerprint

import (
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// DefaultNearThreshold is the recommended Hamming distance below which two
// simhashes signal likely same-source OCR variation.
const DefaultNearThreshold = 5

// StoredFingerprint is a previously persisted hash pair for one record.
type StoredFingerprint struct {
	RecordID  string `json:"recordId"`
	ExactHash string `json:"exactHash"`
	SimHash   string `json:"simhash,omitempty"`
}

// DuplicateVerdict is the duplicate-upload check result. An exact match
// means the identical document was already saved and the caller should
// prompt before proceeding; a near match is advisory only.
type DuplicateVerdict struct {
	IsDuplicate      bool      `json:"isDuplicate"`
	IsExactDuplicate bool      `json:"isExactDuplicate"`
	MatchingRecordID string    `json:"matchingRecordId,omitempty"`
	HammingDistance  int       `json:"hammingDistance"`
	CheckedAt        time.Time `json:"checkedAt"`
}

// CheckDuplicate compares a new document's fingerprint against all stored
// fingerprints. Exact hash equality wins over any near match; otherwise
// the closest simhash under threshold is reported. A non-positive
// threshold falls back to DefaultNearThreshold.
func CheckDuplicate(fp entities.ContentFingerprint, stored []StoredFingerprint, threshold int) DuplicateVerdict {
	if threshold <= 0 {
		threshold = DefaultNearThreshold
	}

	verdict := DuplicateVerdict{
		HammingDistance: MaxDistance,
		CheckedAt:       time.Now().UTC(),
	}

	for _, candidate := range stored {
		if candidate.ExactHash != "" && candidate.ExactHash == fp.ExactHash && fp.ExactHash != ZeroExactHash {
			verdict.IsDuplicate = true
			verdict.IsExactDuplicate = true
			verdict.MatchingRecordID = candidate.RecordID
			verdict.HammingDistance = 0
			return verdict
		}

		distance := HammingDistance(fp.SimHash, candidate.SimHash)
		if distance < verdict.HammingDistance {
			verdict.HammingDistance = distance
			if distance < threshold {
				verdict.IsDuplicate = true
				verdict.MatchingRecordID = candidate.RecordID
			}
		}
	}

	return verdict
}
