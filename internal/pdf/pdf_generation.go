package pdf

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders documents; handlers depend on it so tests can stub it.
type Generator interface {
	WriteReceipt(w io.Writer, data ReceiptData) error
}

// DocumentGenerator draws receipts with gofpdf. With no TTF font configured it
// falls back to the core Helvetica font and a cp1252 translator, which covers
// Spanish accents.
type DocumentGenerator struct {
	FontPath string
	fontName string
}

type ReceiptData struct {
	PaymentID     int64
	TaskID        int64
	TaskTitle     string
	PayerName     string
	MemberName    string
	Amount        string
	Currency      string
	Method        string
	SenderName    string
	SenderBank    string
	RecipientBank string
	TransferDate  time.Time
	VerifiedAt    time.Time
	// Task price breakdown; empty values are omitted.
	AssistantPrice string
	PlatformFee    string
	Discount       string
	Total          string
}

func NewDocumentGenerator(fontPath string) *DocumentGenerator {
	return &DocumentGenerator{FontPath: fontPath, fontName: "DejaVu"}
}

func (g *DocumentGenerator) WriteReceipt(w io.Writer, data ReceiptData) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(fmt.Sprintf("Comprobante de pago #%d", data.PaymentID), true)
	doc.SetAuthor("IntiHelp", true)
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)

	font, tr := g.setupFont(doc)
	doc.AddPage()

	doc.SetFont(font, "B", 18)
	doc.CellFormat(0, 10, tr("COMPROBANTE DE PAGO"), "", 1, "C", false, 0, "")
	doc.SetFont(font, "", 12)
	doc.CellFormat(0, 7, tr(fmt.Sprintf("N° IH-%06d  del  %s", data.PaymentID, data.VerifiedAt.Format("02/01/2006"))),
		"", 1, "C", false, 0, "")
	hr(doc)
	doc.Ln(3)

	sectionTitle(doc, font, tr("Tarea"))
	kvLine(doc, font, tr, "Número", fmt.Sprintf("%d", data.TaskID))
	kvLine(doc, font, tr, "Título", data.TaskTitle)
	if data.Total != "" {
		kvLine(doc, font, tr, "Precio asistente", money(data.AssistantPrice, data.Currency))
		kvLine(doc, font, tr, "Comisión", money(data.PlatformFee, data.Currency))
		if data.Discount != "" {
			kvLine(doc, font, tr, "Descuento", money(data.Discount, data.Currency))
		}
		kvLine(doc, font, tr, "Total", money(data.Total, data.Currency))
	}
	doc.Ln(2)
	hr(doc)

	sectionTitle(doc, font, tr("Pago"))
	kvLine(doc, font, tr, "Pagador", data.PayerName)
	if data.MemberName != "" {
		kvLine(doc, font, tr, "Integrante", data.MemberName)
	}
	kvLine(doc, font, tr, "Monto", money(data.Amount, data.Currency))
	kvLine(doc, font, tr, "Método", data.Method)
	kvLine(doc, font, tr, "Remitente", data.SenderName)
	kvLine(doc, font, tr, "Banco origen", data.SenderBank)
	kvLine(doc, font, tr, "Banco destino", data.RecipientBank)
	kvLine(doc, font, tr, "Fecha transf.", data.TransferDate.Format("02/01/2006"))
	kvLine(doc, font, tr, "Verificado", data.VerifiedAt.Format("02/01/2006 15:04"))
	doc.Ln(2)
	hr(doc)

	doc.SetFont(font, "", 10)
	doc.MultiCell(0, 5, tr("Este comprobante certifica que el pago fue verificado por la plataforma IntiHelp."), "", "L", false)

	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(font, "", 9)
		doc.CellFormat(0, 10, tr(fmt.Sprintf("Pág. %d/{nb}", doc.PageNo())), "", 0, "C", false, 0, "")
	})

	return doc.Output(w)
}

func (g *DocumentGenerator) setupFont(doc *gofpdf.Fpdf) (string, func(string) string) {
	if g.FontPath != "" {
		if _, err := os.Stat(g.FontPath); err == nil {
			doc.AddUTF8Font(g.fontName, "", g.FontPath)
			doc.AddUTF8Font(g.fontName, "B", g.FontPath)
			return g.fontName, func(s string) string { return s }
		}
	}
	return "Helvetica", doc.UnicodeTranslatorFromDescriptor("")
}

func money(amount, currency string) string {
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

func sectionTitle(doc *gofpdf.Fpdf, font, s string) {
	doc.SetFont(font, "B", 12)
	doc.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	doc.SetFont(font, "", 11)
}

func kvLine(doc *gofpdf.Fpdf, font string, tr func(string) string, key, val string) {
	doc.SetFont(font, "B", 11)
	doc.CellFormat(45, 6, tr(key+":"), "", 0, "L", false, 0, "")
	doc.SetFont(font, "", 11)
	doc.CellFormat(0, 6, tr(val), "", 1, "L", false, 0, "")
}

func hr(doc *gofpdf.Fpdf) {
	y := doc.GetY() + 1.5
	doc.SetLineWidth(0.2)
	doc.Line(20, y, 190, y)
	doc.SetY(y + 2)
}
