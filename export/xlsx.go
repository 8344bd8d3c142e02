// xlsx.go - Full-ledger workbook export.
package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lotbook/stock-engine/ledger"
)

// WriteWorkbook writes an XLSX workbook with one sheet per table:
// Lots, Sales, and Inventory, each with its header row.
func WriteWorkbook(w io.Writer, lots []ledger.Lot, sales []ledger.Sale, inventory []ledger.InventoryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	lotRows := make([][]string, 0, len(lots))
	for _, lot := range lots {
		lotRows = append(lotRows, ledger.EncodeLotRow(lot))
	}
	saleRows := make([][]string, 0, len(sales))
	for _, sale := range sales {
		saleRows = append(saleRows, ledger.EncodeSaleRow(sale))
	}
	invRows := make([][]string, 0, len(inventory))
	for _, row := range inventory {
		invRows = append(invRows, ledger.EncodeInventoryRow(row))
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{ledger.TableLots, ledger.LotHeader, lotRows},
		{ledger.TableSales, ledger.SaleHeader, saleRows},
		{ledger.TableInventory, ledger.InventoryHeader, invRows},
	}

	for i, sheet := range sheets {
		if i == 0 {
			// excelize creates "Sheet1" by default; rename it for the first table.
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return err
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return err
			}
		}
		if err := writeSheet(f, sheet.name, sheet.header, sheet.rows); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	all := append([][]string{header}, rows...)
	for r, row := range all {
		for c, cell := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, ref, cell); err != nil {
				return err
			}
		}
	}
	return nil
}
