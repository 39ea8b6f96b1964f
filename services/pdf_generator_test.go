package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFeeContractHTML(t *testing.T) {
	html, err := RenderFeeContractHTML(FeeContractDocument{
		OfficeName:        "Silva & Souza",
		ClientName:        "Maria <script>",
		ClientTaxID:       "123.456.789-01",
		CaseReference:     "PROC-2026-00001",
		Type:              "fixed",
		Total:             FormatBRL(3000),
		Installments:      3,
		InstallmentAmount: FormatBRL(1000),
		DueDay:            10,
		Clauses:           "Cláusula 1",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Silva &amp; Souza")
	assert.Contains(t, html, "Maria &lt;script&gt;")
	assert.Contains(t, html, "3 x R$ 1.000,00")
	assert.NotContains(t, html, "Êxito")
}

func TestChromePDFSmoke(t *testing.T) {
	if os.Getenv("CHROME_PATH") == "" {
		t.Skip("CHROME_PATH not set")
	}
	r := &ChromePDF{ExecPath: os.Getenv("CHROME_PATH"), Timeout: 20 * time.Second}
	out, err := r.Render(context.Background(), "<h1>ok</h1>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}
