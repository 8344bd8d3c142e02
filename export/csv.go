/*
Package export renders ledger records for download.

CSV exports carry one entity type each, with the column order of the
backing tables and a header row. encoding/csv quotes fields, so values
containing commas survive the round trip. The XLSX export (xlsx.go)
bundles all three tables into one workbook.
*/
package export

import (
	"encoding/csv"
	"io"

	"github.com/lotbook/stock-engine/ledger"
)

// WriteLotsCSV writes all lots as UTF-8 CSV, header first.
func WriteLotsCSV(w io.Writer, lots []ledger.Lot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.LotHeader); err != nil {
		return err
	}
	for _, lot := range lots {
		if err := cw.Write(ledger.EncodeLotRow(lot)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSalesCSV writes all sales as UTF-8 CSV, header first.
func WriteSalesCSV(w io.Writer, sales []ledger.Sale) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.SaleHeader); err != nil {
		return err
	}
	for _, sale := range sales {
		if err := cw.Write(ledger.EncodeSaleRow(sale)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInventoryCSV writes the rollup rows as UTF-8 CSV, header first.
func WriteInventoryCSV(w io.Writer, rows []ledger.InventoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.InventoryHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(ledger.EncodeInventoryRow(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
