package ocr

import "context"

// placeholderText mirrors a tax administration decision. Its OIB fails the
// check digit, so a placeholder read can never be approved automatically.
const placeholderText = `Rješenja Porezne uprave o upisu u registar poreznih obveznika

Na osnovu Zakona o porezu na dodanu vrijednost,
Porezna uprava donosi:

RJEŠENJE

Upisuje se u registar poreznih obveznika (RPO)

OIB: 12345678901
Ime i prezime: Test Testić
Adresa: Testna adresa 1, 10000 Zagreb
Datum: 2024-01-15
`

// Placeholder stands in when no recognition engine is configured.
type Placeholder struct{}

// Recognize returns fixed text with zero confidence.
func (Placeholder) Recognize(context.Context, []byte) (Result, error) {
	return placeholderResult(), nil
}

func placeholderResult() Result {
	return Result{
		Text:       placeholderText,
		Confidence: 0,
		Language:   LanguageCroatian,
		Engine:     "placeholder",
	}
}
