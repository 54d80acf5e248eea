package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/aurum/internal/domain"
)

const SheetName = "Catalogo"

var header = []any{"ID", "Nombre", "Categoría", "Precio", "Stock", "Destacado", "Activo", "Imagen", "Creado"}

// Exporter escribe el catálogo en una sola hoja, una fila por producto.
type Exporter struct{}

var _ domain.CatalogExporter = Exporter{}

func (Exporter) Export(w io.Writer, products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, p := range products {
		// precio vacío = "consultar"
		var precio any = ""
		if p.Precio != nil {
			precio, _ = p.Precio.Float64()
		}
		creado := ""
		if !p.CreatedAt.IsZero() {
			creado = p.CreatedAt.Format("2006-01-02")
		}
		row := []any{string(p.ID), p.Nombre, p.Categoria, precio, p.Stock, siNo(p.Destacado), siNo(p.Activo), p.Image(), creado}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("fila %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return err
	}
	return f.Write(w)
}

func siNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
