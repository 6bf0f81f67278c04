// Package report builds patron status reports.
package report

const (
	StatusOK            = "Report generated successfully"
	StatusInvalidPatron = "Invalid patron ID. Cannot create a report for unrecognizable patron"

	notReturned = "Not Returned"
	dateLayout  = "2006-01-02"
)

// BorrowedBook is a book the patron still holds.
type BorrowedBook struct {
	BookID     int64   `json:"book_id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	BorrowDate string  `json:"borrow_date"`
	DueDate    string  `json:"due_date"`
	LateFee    float64 `json:"late_fee"`
}

// HistoryEntry is one past or current borrow.
type HistoryEntry struct {
	BookID     int64  `json:"book_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	BorrowDate string `json:"borrow_date"`
	DueDate    string `json:"due_date"`
	ReturnDate string `json:"return_date"`
}

type Report struct {
	PatronID           string         `json:"patron_id"`
	CurrentlyBorrowed  []BorrowedBook `json:"currently_borrowed"`
	NumCurrentBorrowed int            `json:"num_current_borrowed"`
	LateFees           float64        `json:"late_fees"`
	BorrowHistory      []HistoryEntry `json:"borrow_history"`
	ReportStatus       string         `json:"report_status"`
}
