package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// PDF is the process-wide renderer, replaced in tests.
var PDF PDFRenderer = &ChromePDF{}

// ChromePDF prints pages with headless Chrome. ExecPath points at a
// headless-shell binary in containers; empty uses the system browser.
type ChromePDF struct {
	ExecPath string
	Timeout  time.Duration
}

// A4 in inches, 2cm margins
const (
	a4Width   = 8.27
	a4Height  = 11.69
	pdfMargin = 0.79
)

func (c *ChromePDF) Render(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var out []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(pdfMargin).
				WithMarginBottom(pdfMargin).
				WithMarginLeft(pdfMargin).
				WithMarginRight(pdfMargin).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &ExternalServiceError{Service: "pdf", Err: fmt.Errorf("failed to generate PDF: %w", err)}
	}
	return out, nil
}

const feeContractHTML = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<style>
body { font-family: "Times New Roman", serif; font-size: 12pt; line-height: 1.5; }
h1 { text-align: center; font-size: 16pt; }
table { width: 100%; border-collapse: collapse; margin-top: 12pt; }
td, th { border: 1px solid #444; padding: 4pt 6pt; }
.clauses { white-space: pre-wrap; margin-top: 18pt; }
</style>
</head>
<body>
<h1>Contrato de Honorários Advocatícios</h1>
<p><strong>Contratante:</strong> {{.ClientName}}{{if .ClientTaxID}} ({{.ClientTaxID}}){{end}}</p>
<p><strong>Contratado:</strong> {{.OfficeName}}</p>
<p><strong>Processo:</strong> {{.CaseReference}} {{.FilingNumber}}</p>
<table>
<tr><th>Tipo</th><td>{{.Type}}</td></tr>
<tr><th>Valor total</th><td>{{.Total}}</td></tr>
{{if .SuccessPercent}}<tr><th>Êxito</th><td>{{.SuccessPercent}}%</td></tr>{{end}}
<tr><th>Parcelas</th><td>{{.Installments}} x {{.InstallmentAmount}} (vencimento dia {{.DueDay}})</td></tr>
</table>
<div class="clauses">{{.Clauses}}</div>
<p style="margin-top:36pt">{{.IssuedAt}}</p>
</body>
</html>`

var feeContractTemplate = template.Must(template.New("fee_contract").Parse(feeContractHTML))

// FeeContractDocument is the data printed on a fee contract
type FeeContractDocument struct {
	OfficeName        string
	ClientName        string
	ClientTaxID       string
	CaseReference     string
	FilingNumber      string
	Type              string
	Total             string
	SuccessPercent    float64
	Installments      int
	InstallmentAmount string
	DueDay            int
	Clauses           string
	IssuedAt          string
}

// RenderFeeContractHTML fills the contract template; values are HTML-escaped.
func RenderFeeContractHTML(doc FeeContractDocument) (string, error) {
	var buf bytes.Buffer
	if err := feeContractTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render contract: %w", err)
	}
	return buf.String(), nil
}
