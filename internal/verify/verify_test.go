package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubOracle struct {
	answer string
	err    error
	calls  []llm.Prompt
}

func (s *stubOracle) Name() string  { return "stub" }
func (s *stubOracle) Model() string { return "stub-1" }

func (s *stubOracle) Complete(_ context.Context, p llm.Prompt) (string, error) {
	s.calls = append(s.calls, p)
	return s.answer, s.err
}

func TestIsRealCompany(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   bool
	}{
		{name: "plain_yes", answer: "SI", want: true},
		{name: "lowercase_yes", answer: "si", want: true},
		{name: "yes_with_prose", answer: "Sì, direi di SI.", want: true},
		{name: "no", answer: "NO", want: false},
		{name: "empty", answer: "", want: false},
		{name: "english", answer: "Yes", want: false},
		{name: "oracle_error", err: errors.New("connection reset by peer"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &stubOracle{answer: tt.answer, err: tt.err}
			v := New(oracle)
			got := v.IsRealCompany(context.Background(), "Ferramenta Rossi", "https://rossi.it", "Utensili")
			assert.Equal(t, tt.want, got)
			assert.Len(t, oracle.calls, 1)
		})
	}
}

func TestIsRealCompany_NilOracleFailsClosed(t *testing.T) {
	assert.False(t, New(nil).IsRealCompany(context.Background(), "a", "https://a.it", "s"))
}

func TestPrompt(t *testing.T) {
	p := Prompt("Rossi Srl", "https://rossi.it", "Ferramenta")
	assert.Equal(t, "verify", p.Phase)
	assert.Contains(t, p.System, "Rispondi SOLO con 'SI'")
	assert.Contains(t, p.User, "Titolo: Rossi Srl")
	assert.Contains(t, p.User, "URL: https://rossi.it")
	assert.Contains(t, p.User, "Descrizione: Ferramenta")
}
