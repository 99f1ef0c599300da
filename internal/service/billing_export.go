package service

import (
	"bytes"
	"fmt"

	"societysync/internal/domain"

	"github.com/xuri/excelize/v2"
)

// billExportHeaders 账单导出表头
var billExportHeaders = []string{
	"Bill ID", "Flat", "Bill Type", "Amount", "Due Date", "Status", "Payment Date", "Payment Method", "Created At",
}

// generateBillsExcel 生成账单 Excel 文件
func generateBillsExcel(bills []*domain.Bill) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能关闭文件

	sheetName := "Bills"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range billExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "I", 16); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, b := range bills {
		row := i + 2 // 第1行是表头
		values := []interface{}{
			b.BillID,
			b.FlatNumber,
			b.BillType,
			b.Amount.InexactFloat64(),
			b.DueDate.Format(DateLayout),
			string(b.PaymentStatus),
			"",
			"",
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		if b.PaymentDate != nil {
			values[6] = b.PaymentDate.Format(DateLayout)
		}
		if b.PaymentMethod != nil {
			values[7] = *b.PaymentMethod
		}
		for col, v := range values {
			if err := setCellValue(f, sheetName, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// setCellValue 设置单元格值
func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
