package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"log"
	"strings"
	"wanderlust/src/models"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/yeqown/go-qrcode"
)

const ticketTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #222; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 24px; max-width: 640px; }
.title { font-size: 22px; margin-bottom: 4px; }
.muted { color: #777; font-size: 13px; }
table { width: 100%; margin-top: 16px; border-collapse: collapse; }
td { padding: 6px 0; }
td.label { color: #777; width: 40%; }
.qr { margin-top: 20px; }
.total { font-size: 18px; font-weight: bold; }
</style>
</head>
<body>
<div class="card">
  <div class="title">{{ .Booking.Listing.Title }}</div>
  <div class="muted">{{ .Booking.Listing.Location }}, {{ .Booking.Listing.Country }}</div>
  <table>
    <tr><td class="label">Booking reference</td><td>{{ .Booking.ID }}</td></tr>
    <tr><td class="label">Guest</td><td>{{ .Booking.Traveler.Username }}</td></tr>
    <tr><td class="label">Check-in</td><td>{{ .Booking.CheckIn.Format "Mon, 02 Jan 2006" }}</td></tr>
    <tr><td class="label">Check-out</td><td>{{ .Booking.CheckOut.Format "Mon, 02 Jan 2006" }}</td></tr>
    <tr><td class="label">Guests</td><td>{{ .Booking.NumberOfGuests }}</td></tr>
    <tr><td class="label">Payment status</td><td>{{ .Booking.PaymentStatus }}</td></tr>
    <tr><td class="label">Total paid</td><td class="total">&#8377;{{ .Booking.TotalPrice }}</td></tr>
  </table>
  {{ if .QRDataURI }}<div class="qr"><img src="{{ .QRDataURI }}" width="140" height="140" alt="booking code"></div>{{ end }}
  <p class="muted">Present this ticket at check-in. Regards, Team Wanderlust</p>
</div>
</body>
</html>`

var ticketTmpl = template.Must(template.New("ticket").Parse(ticketTemplate))

// BookingQRCode encodes the booking reference for check-in scanning.
func BookingQRCode(booking *models.Booking) ([]byte, error) {
	qrc, err := qrcode.New(booking.ID.String())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTicketHTML renders the receipt document for a confirmed booking.
// The booking must come with Listing and Traveler preloaded.
func RenderTicketHTML(booking *models.Booking) (string, error) {
	var qrDataURI template.URL
	qr, err := BookingQRCode(booking)
	if err != nil {
		// the receipt is still valid without a scan code
		log.Printf("Could not generate QR code for booking %s: %s\n", booking.ID, err.Error())
	} else {
		qrDataURI = template.URL(fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(qr)))
	}
	var out bytes.Buffer
	if err := ticketTmpl.Execute(&out, map[string]any{
		"Booking":   booking,
		"QRDataURI": qrDataURI,
	}); err != nil {
		return "", err
	}
	return out.String(), nil
}

// HTMLToPDF converts a rendered document to its durable form.
func HTMLToPDF(html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, err
	}
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.PrintMediaType.Set(true)
	pdfg.AddPage(page)
	if err := pdfg.Create(); err != nil {
		return nil, err
	}
	return pdfg.Bytes(), nil
}

// TicketPDF produces the e-ticket attachment for the traveler email.
func TicketPDF(booking *models.Booking) ([]byte, error) {
	html, err := RenderTicketHTML(booking)
	if err != nil {
		return nil, err
	}
	return HTMLToPDF(html)
}
