// Package export renders the admin download formats. Both formats are
// byte-exact contracts: phone clients import the VCF directly and the CSV
// is opened in spreadsheet software expecting the BOM and quoting produced
// by the original deployment.
package export

import (
	"strings"

	"github.com/kbsnetwork/server/internal/model"
)

// utf8BOM prefixes the CSV so Excel detects UTF-8 (accents in the header).
const utf8BOM = "\ufeff"

// csvHeader is the fixed French header row.
const csvHeader = "Nom,Téléphone,Email,Date d'inscription\n"

// csvDateLayout renders dates the way fr-FR toLocaleDateString did.
const csvDateLayout = "02/01/2006"

// VCF renders the contacts as a vCard 3.0 file, one card per contact in
// the given order. Contacts without an email omit the EMAIL line entirely.
func VCF(contacts []model.Contact) string {
	var b strings.Builder
	for _, c := range contacts {
		b.WriteString("BEGIN:VCARD\n")
		b.WriteString("VERSION:3.0\n")
		b.WriteString("FN:" + c.Name + "\n")
		b.WriteString("TEL:" + c.CountryCode + c.Phone + "\n")
		if c.HasEmail() {
			b.WriteString("EMAIL:" + *c.Email + "\n")
		}
		b.WriteString("END:VCARD\n")
	}
	return b.String()
}

// CSV renders the contacts as a UTF-8 CSV with every field double-quoted,
// matching the original export byte for byte (encoding/csv would drop the
// quotes around fields that do not need them).
func CSV(contacts []model.Contact) string {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(csvHeader)
	for _, c := range contacts {
		email := ""
		if c.Email != nil {
			email = *c.Email
		}
		b.WriteString(`"` + c.Name + `","` + c.CountryCode + c.Phone + `","` + email + `","` + c.CreatedAt.Format(csvDateLayout) + `"` + "\n")
	}
	return b.String()
}
