// Package notify mails the ledger to the report recipient once a run ends.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
)

const composeSystem = "Sei un assistente che genera email HTML professionali e concise. Non includere CSS inline."

// Composer writes the HTML body of the report email.
type Composer struct {
	oracle llm.Oracle
}

// NewComposer creates a Composer. A nil oracle always yields the fallback
// body.
func NewComposer(oracle llm.Oracle) *Composer {
	return &Composer{oracle: oracle}
}

// Compose asks the oracle for a short confirmation email and falls back to
// FallbackHTML when no oracle is configured or the call fails.
func (c *Composer) Compose(ctx context.Context, companyCount int, sector string) string {
	if c.oracle == nil {
		return FallbackHTML(companyCount, sector)
	}

	body, err := c.oracle.Complete(ctx, ComposePrompt(companyCount, sector))
	if err != nil {
		zap.L().Warn("notify: compose failed, using fallback", zap.Error(err))
		return FallbackHTML(companyCount, sector)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return FallbackHTML(companyCount, sector)
	}
	return body
}

// ComposePrompt builds the confirmation request sent to the oracle.
func ComposePrompt(companyCount int, sector string) llm.Prompt {
	return llm.Prompt{
		Phase:  "compose",
		System: composeSystem,
		User: fmt.Sprintf("Genera una breve email HTML che conferma la creazione del file Excel con %d aziende trovate nel settore '%s'. "+
			"Menziona che il file è allegato. Mantieni il messaggio breve e professionale.", companyCount, sector),
	}
}

// FallbackHTML is the deterministic report body.
func FallbackHTML(companyCount int, sector string) string {
	return fmt.Sprintf(`<html>
<body>
    <h2>Lista Aziende - %s</h2>
    <p>Ciao,</p>
    <p>Il file Excel con la lista delle aziende è stato creato con successo!</p>
    <p><strong>Totale aziende trovate: %d</strong></p>
    <p>Trovi i dettagli completi nel file Excel allegato.</p>
    <p>Cordiali saluti</p>
</body>
</html>
`, html.EscapeString(sector), companyCount)
}

// Subject returns the report subject for the swept sectors.
func Subject(sector string) string {
	return "Lista Aziende - " + sector
}

// JoinSectors renders the sector list the way it appears in the subject.
func JoinSectors(sectors []string) string {
	return strings.Join(sectors, ", ")
}
