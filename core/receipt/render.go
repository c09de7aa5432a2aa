package receipt

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"sync"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	appfs "github.com/Jati804/internal-web-sanur-akademi-sub000/fs"
)

const qrSize = 256

var (
	printTmpl     *htmltmpl.Template
	printTmplErr  error
	printTmplOnce sync.Once
)

func loadPrintTemplate() (*htmltmpl.Template, error) {
	printTmplOnce.Do(func() {
		printTmpl, printTmplErr = htmltmpl.New("receipt.gohtml").
			Funcs(htmltmpl.FuncMap{"money": core.FormatMoney}).
			ParseFS(appfs.FS, "templates/receipt/receipt.gohtml")
	})
	return printTmpl, printTmplErr
}

// QRCode returns a PNG QR code of the receipt's verification URL.
func (svc *Service) QRCode(rct Receipt, size int) ([]byte, error) {
	if size <= 0 {
		size = qrSize
	}
	png, err := qrcode.Encode(svc.VerifyURL(rct), qrcode.Medium, size)
	return png, errors.Wrap(err, "encoding QR code")
}

type printData struct {
	Academy   core.AcademyConfig
	Receipt   Receipt
	Voided    bool
	VerifyURL string
	QRCode    htmltmpl.URL
	Currency  string
}

// Render returns the printable HTML page of a receipt, with its QR code inlined.
func (svc *Service) Render(rct Receipt) ([]byte, error) {
	tmpl, err := loadPrintTemplate()
	if err != nil {
		return nil, errors.Wrap(err, "parsing receipt template")
	}
	qr, err := svc.QRCode(rct, qrSize)
	if err != nil {
		return nil, err
	}

	data := printData{
		Academy:   svc.conf.Academy,
		Receipt:   rct,
		Voided:    rct.IsVoided(),
		VerifyURL: svc.VerifyURL(rct),
		QRCode:    htmltmpl.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qr)),
		Currency:  svc.conf.Academy.Currency,
	}
	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return nil, errors.Wrap(err, "rendering receipt")
	}
	return buff.Bytes(), nil
}
