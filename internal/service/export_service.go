package service

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/engine"
	"go-approvals/internal/models"

	"github.com/xuri/excelize/v2"
)

// ExportService renders the approval register as a spreadsheet for the
// finance/audit teams
type ExportService interface {
	BuildRegister(ctx context.Context, status models.RequestStatus) (*excelize.File, error)
}

type ExportServiceImpl struct {
	Engine engine.Engine
}

func NewExportService(eng engine.Engine) ExportService {
	return &ExportServiceImpl{Engine: eng}
}

var registerColumns = []string{
	"Request ID", "Template", "Version", "Type", "Subject", "Amount", "Currency",
	"Requester", "Current Level", "Status", "SLA Status", "Urgent", "Created", "Completed",
}

const exportPageSize = 500

func (s *ExportServiceImpl) BuildRegister(ctx context.Context, status models.RequestStatus) (*excelize.File, error) {
	var requests []models.ApprovalRequest
	for page := int64(1); ; page++ {
		batch, total, err := s.Engine.List(ctx, status, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		requests = append(requests, batch...)
		if len(batch) == 0 || int64(len(requests)) >= total {
			break
		}
	}

	f := excelize.NewFile()
	sheetName := "Approval Register"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range registerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, req := range requests {
		values := []interface{}{
			req.ID.Hex(),
			req.TemplateCode,
			req.TemplateVersion,
			string(req.TransactionType),
			req.Transaction.Subject,
			req.Transaction.Amount,
			req.Transaction.Currency,
			req.Transaction.RequesterID,
			req.CurrentLevelOrder,
			string(req.Status),
			string(req.SLAState),
			req.IsUrgent,
			req.CreatedAt.Format(time.RFC3339),
			formatCompleted(req.CompletedAt),
		}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	for i := range registerColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	return f, nil
}

func formatCompleted(completedAt *time.Time) string {
	if completedAt == nil {
		return ""
	}
	return completedAt.Format(time.RFC3339)
}

// Filename builds a dated attachment name for the register download
func Filename(status models.RequestStatus) string {
	suffix := "all"
	if status != "" {
		suffix = string(status)
	}
	return fmt.Sprintf("approval-register-%s-%s.xlsx", suffix, time.Now().Format("20060102"))
}
