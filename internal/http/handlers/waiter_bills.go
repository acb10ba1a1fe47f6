package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/table"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phpdave11/gofpdf"
)

type billView struct {
	ID            int64             `json:"id"`
	TableNumber   int               `json:"tableNumber"`
	PaymentMethod string            `json:"paymentMethod"`
	TotalAmount   float64           `json:"totalAmount"`
	PerSeat       []table.SeatTotal `json:"perSeat,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func scanBill(row pgx.Row) (billView, error) {
	var (
		bill        billView
		totalAmount pgtype.Numeric
		perSeatJSON []byte
	)
	err := row.Scan(&bill.ID, &bill.TableNumber, &bill.PaymentMethod, &totalAmount, &perSeatJSON, &bill.CreatedAt)
	if err != nil {
		return bill, err
	}
	bill.TotalAmount = utils.NumericToFloat64(totalAmount)
	if len(perSeatJSON) > 0 {
		_ = json.Unmarshal(perSeatJSON, &bill.PerSeat)
	}
	return bill, nil
}

// WaiterBillsList returns recent bills, newest first.
func (h *Handler) WaiterBillsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(ctx, `
		select id, table_number, payment_method, total_amount, per_seat, created_at
		from bills where restaurant_id = $1
		order by created_at desc limit 100
	`, restaurantID)
	if err != nil {
		h.Logger.Error("bills query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve bills")
		return
	}
	defer rows.Close()

	bills := make([]billView, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			h.Logger.Error("bills scan failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve bills")
			return
		}
		bills = append(bills, bill)
	}
	response.Success(w, bills)
}

// WaiterBillReceipt renders a printable PDF receipt for one bill.
func (h *Handler) WaiterBillReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	billID, err := readPathInt64(r, "billId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid bill id is required")
		return
	}

	bill, err := scanBill(h.DB.QueryRow(ctx, `
		select id, table_number, payment_method, total_amount, per_seat, created_at
		from bills where id = $1 and restaurant_id = $2
	`, billID, restaurantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Bill not found")
			return
		}
		h.Logger.Error("bill lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Receipt generation failed")
		return
	}

	var (
		restaurantName string
		currency       string
	)
	if err := h.DB.QueryRow(ctx, `
		select name, currency from restaurants where id = $1
	`, restaurantID).Scan(&restaurantName, &currency); err != nil {
		h.Logger.Error("restaurant lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Receipt generation failed")
		return
	}
	currency = strings.ToUpper(currency)

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("Receipt #%d", bill.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, restaurantName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, bill.CreatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Table %d", bill.TableNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Receipt #%d", bill.ID), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(bill.PerSeat) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(60, 7, "Seat", "B", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, "Amount", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, seat := range bill.PerSeat {
			pdf.CellFormat(60, 7, fmt.Sprintf("Seat %d", seat.SeatID), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, fmt.Sprintf("%.2f %s", seat.Total, currency), "", 1, "R", false, 0, "")
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(60, 9, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, fmt.Sprintf("%.2f %s", bill.TotalAmount, currency), "T", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Thank you for your visit", "", 1, "C", false, 0, "")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%d.pdf"`, bill.ID))
	if err := pdf.Output(w); err != nil {
		h.Logger.Error("receipt pdf output failed", zapError(err))
	}
}
