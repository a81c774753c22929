// Package extract asks an extraction oracle for a company's email and phone
// from its home page markup and parses the answer defensively.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/textutil"
)

const systemPrompt = `Sei un assistente esperto che estrae informazioni di contatto da pagine web HTML aziendali. Analizza l'HTML fornito, pulisci il testo rimuovendo script, stili, navigazione, footer, header e contenuti non rilevanti, poi trova l'email aziendale principale e il primo numero di telefono aziendale italiano che incontri nel testo pulito. Rispondi ESCLUSIVAMENTE con un oggetto JSON valido nel formato esatto: {"email": "email@example.com", "phone": "+39 123 456789"}. Se non trovi l'email, metti null. Se non trovi il telefono, metti null. Non aggiungere alcun testo, commento o spiegazione prima o dopo il JSON.`

var (
	// contactObject matches a flat object mentioning both keys in order.
	contactObject = regexp.MustCompile(`\{[^}]*"email"\s*:\s*[^}]*"phone"\s*:\s*[^}]*\}`)
	// anyObject matches any flat object.
	anyObject = regexp.MustCompile(`\{[^}]*\}`)
)

// nullLiterals are string values that mean "absent".
var nullLiterals = map[string]bool{
	"null": true,
	"None": true,
}

// Extractor pulls contacts out of page markup with an oracle.
type Extractor struct {
	oracle   llm.Oracle
	maxChars int
}

// New creates an Extractor. maxChars bounds the markup sent to the oracle
// (0 means unbounded); a nil oracle always yields an empty result.
func New(oracle llm.Oracle, maxChars int) *Extractor {
	return &Extractor{oracle: oracle, maxChars: maxChars}
}

// ExtractContacts returns the best-effort contacts found in html. It never
// fails: empty input, oracle errors and unparseable answers all yield an
// empty result.
func (e *Extractor) ExtractContacts(ctx context.Context, html string) model.ExtractionResult {
	if e.oracle == nil || strings.TrimSpace(html) == "" {
		return model.ExtractionResult{}
	}

	answer, err := e.oracle.Complete(ctx, Prompt(Compact(html, e.maxChars)))
	if err != nil {
		zap.L().Warn("extract: oracle failed", zap.String("error", textutil.Truncate(err.Error(), 100)))
		return model.ExtractionResult{}
	}

	return ParseContacts(answer)
}

// Prompt builds the extraction prompt for the given markup.
func Prompt(html string) llm.Prompt {
	return llm.Prompt{
		Phase:  "extract",
		System: systemPrompt,
		User:   "Estrai email e numero di telefono (aiutandoti con i prefissi come .como.it e +39) da questo HTML di pagina web aziendale: " + html,
	}
}

// ParseContacts locates a JSON object in a possibly noisy oracle answer and
// decodes its email and phone fields. Any failure yields an empty result.
func ParseContacts(answer string) model.ExtractionResult {
	candidate := strings.TrimSpace(answer)
	if m := contactObject.FindString(candidate); m != "" {
		candidate = m
	} else if m := anyObject.FindString(candidate); m != "" {
		candidate = m
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return model.ExtractionResult{}
	}

	return model.ExtractionResult{
		Email: field(fields["email"]),
		Phone: field(fields["phone"]),
	}
}

// field normalizes one decoded value: null, empty and literal "null"/"None"
// are absent; numbers are kept as their text.
func field(v any) *string {
	var s string
	switch val := v.(type) {
	case string:
		s = strings.TrimSpace(val)
	case json.Number:
		s = val.String()
	case nil:
		return nil
	default:
		s = fmt.Sprint(val)
	}
	if s == "" || nullLiterals[s] {
		return nil
	}
	return &s
}

