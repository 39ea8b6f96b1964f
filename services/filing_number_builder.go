package services

import (
	"fmt"
	"strconv"
	"strings"

	"legalflow/models"
)

// FilingNumberComponents holds the parts of a CNJ filing number:
// NNNNNNN-DD.AAAA.J.TR.OOOO (20 digits)
type FilingNumberComponents struct {
	Sequence    string `json:"sequence"`     // 7 digits
	CheckDigits string `json:"check_digits"` // 2 digits
	Year        string `json:"year"`         // 4 digits
	Segment     string `json:"segment"`      // 1 digit, judicial branch
	Court       string `json:"court"`        // 2 digits
	Origin      string `json:"origin"`       // 4 digits, originating unit
	Valid       bool   `json:"valid"`        // check digits match
}

// JudicialSegments names the J digit of a CNJ number.
var JudicialSegments = map[string]string{
	"1": "STF",
	"2": "CNJ",
	"3": "STJ",
	"4": "Justiça Federal",
	"5": "Justiça do Trabalho",
	"6": "Justiça Eleitoral",
	"7": "Justiça Militar da União",
	"8": "Justiça Estadual",
	"9": "Justiça Militar Estadual",
}

// ParseFilingNumber splits a CNJ number, masked or not. Numbers in other
// formats return an error.
func ParseFilingNumber(filingNumber string) (*FilingNumberComponents, error) {
	digits := models.OnlyDigits(filingNumber)
	if len(digits) != 20 {
		return nil, fmt.Errorf("filing number must have 20 digits, got %d", len(digits))
	}
	c := &FilingNumberComponents{
		Sequence:    digits[0:7],
		CheckDigits: digits[7:9],
		Year:        digits[9:13],
		Segment:     digits[13:14],
		Court:       digits[14:16],
		Origin:      digits[16:20],
	}
	c.Valid = CNJCheckDigits(c.Sequence, c.Year, c.Segment, c.Court, c.Origin) == c.CheckDigits
	return c, nil
}

// String renders the masked form.
func (c FilingNumberComponents) String() string {
	return fmt.Sprintf("%s-%s.%s.%s.%s.%s", c.Sequence, c.CheckDigits, c.Year, c.Segment, c.Court, c.Origin)
}

// SegmentName returns the branch name, or "" for an unknown digit.
func (c FilingNumberComponents) SegmentName() string {
	return JudicialSegments[c.Segment]
}

// CNJCheckDigits computes DD with ISO 7064 mod 97-10 over
// NNNNNNN AAAA J TR OOOO 00.
func CNJCheckDigits(sequence, year, segment, court, origin string) string {
	remainder := 0
	for _, r := range sequence + year + segment + court + origin + "00" {
		remainder = (remainder*10 + int(r-'0')) % 97
	}
	return fmt.Sprintf("%02d", 98-remainder)
}

// BuildFilingNumber assembles a masked CNJ number with computed check digits.
func BuildFilingNumber(sequence int, year int, segment string, court, origin int) (string, error) {
	if sequence < 0 || sequence > 9999999 {
		return "", invalid("sequence", "must have at most 7 digits")
	}
	if year < 1900 || year > 2100 {
		return "", invalid("year", "must be between 1900 and 2100")
	}
	if _, ok := JudicialSegments[segment]; !ok {
		return "", invalid("segment", "unknown judicial segment")
	}
	if court < 0 || court > 99 || origin < 0 || origin > 9999 {
		return "", invalid("court", "out of range")
	}
	c := FilingNumberComponents{
		Sequence: fmt.Sprintf("%07d", sequence),
		Year:     strconv.Itoa(year),
		Segment:  segment,
		Court:    fmt.Sprintf("%02d", court),
		Origin:   fmt.Sprintf("%04d", origin),
		Valid:    true,
	}
	c.CheckDigits = CNJCheckDigits(c.Sequence, c.Year, c.Segment, c.Court, c.Origin)
	return c.String(), nil
}

// NormalizeFilingNumber masks 20-digit CNJ numbers and trims anything else.
// Older and non-CNJ numbers are kept as typed.
func NormalizeFilingNumber(filingNumber string) string {
	trimmed := strings.TrimSpace(filingNumber)
	if c, err := ParseFilingNumber(trimmed); err == nil {
		return c.String()
	}
	return trimmed
}
