package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

// InvoicePrefix prefijo fijo del número de factura. El formato es un contrato externo.
const InvoicePrefix = "FAC"

const sequenceDigits = 6

// FormatInvoiceNumber arma FAC-{YYYY}-{MM}-{NNNNNN}.
func FormatInvoiceNumber(year, month int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%02d-%0*d", InvoicePrefix, year, month, sequenceDigits, seq)
}

// ParseInvoiceSequence extrae el consecutivo (sufijo) de un número de factura.
func ParseInvoiceSequence(number string) (int64, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 4 || parts[0] != InvoicePrefix {
		return 0, fmt.Errorf("número de factura con formato inválido: %q", number)
	}
	seq, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("consecutivo inválido en %q", number)
	}
	return seq, nil
}
