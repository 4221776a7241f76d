package services

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/xuri/excelize/v2"
)

var orderReportHeaders = []string{
	"Order Number", "Date", "Student Name", "Student Email", "Course", "Package",
	"Classes", "Amount", "Currency", "Status", "Provider", "Paid At",
}

func orderReportRow(o models.StudentOrder) []string {
	var name, email string
	if o.Student != nil {
		name, email = o.Student.Name, o.Student.Email
	}
	paidAt := ""
	if o.PaidAt != nil {
		paidAt = o.PaidAt.Format("2006-01-02 15:04")
	}
	return []string{
		o.OrderNumber,
		o.CreatedAt.Format("2006-01-02 15:04"),
		name,
		email,
		o.CourseKey,
		o.PackageName,
		strconv.Itoa(o.ClassesPurchased),
		o.Amount.StringFixed(2),
		o.Currency,
		string(o.Status),
		o.PaymentProvider,
		paidAt,
	}
}

func WriteOrdersCSV(w io.Writer, orders []models.StudentOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderReportHeaders); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write(orderReportRow(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func BuildOrdersXLSX(orders []models.StudentOrder) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := lo.Map(orderReportHeaders, func(h string, _ int) interface{} { return h })
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := lo.Map(orderReportRow(o), func(v string, _ int) interface{} { return v })
		row[6] = o.ClassesPurchased
		row[7] = o.Amount.InexactFloat64()
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
