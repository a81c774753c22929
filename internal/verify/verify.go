// Package verify asks a classification oracle whether a search hit is a real
// company. It fails closed: any oracle error rejects the candidate.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/textutil"
)

// affirmative is matched against the upper-cased oracle answer.
const affirmative = "SI"

const systemPrompt = `Sei un assistente esperto che identifica se un risultato di ricerca corrisponde a un'azienda vera e propria.

Analizza il titolo, l'URL e la descrizione del risultato.
Rispondi SOLO con 'SI' se è un'azienda vera, 'NO' in tutti gli altri casi.`

// Verifier classifies candidates with an oracle.
type Verifier struct {
	oracle llm.Oracle
}

// New creates a Verifier. A nil oracle rejects every candidate.
func New(oracle llm.Oracle) *Verifier {
	return &Verifier{oracle: oracle}
}

// IsRealCompany reports whether the oracle judged the hit a real company.
// Any answer containing "SI" (case-insensitive) counts as yes.
func (v *Verifier) IsRealCompany(ctx context.Context, name, url, snippet string) bool {
	if v.oracle == nil {
		return false
	}

	answer, err := v.oracle.Complete(ctx, Prompt(name, url, snippet))
	if err != nil {
		zap.L().Warn("verify: oracle failed",
			zap.String("url", url),
			zap.String("error", textutil.Truncate(err.Error(), 80)),
		)
		return false
	}

	return strings.Contains(strings.ToUpper(strings.TrimSpace(answer)), affirmative)
}

// Prompt builds the classification prompt for one hit.
func Prompt(name, url, snippet string) llm.Prompt {
	return llm.Prompt{
		Phase:  "verify",
		System: systemPrompt,
		User:   fmt.Sprintf("Analizza questo risultato:\n\nTitolo: %s\nURL: %s\nDescrizione: %s\n\nÈ un'azienda vera?", name, url, snippet),
	}
}

