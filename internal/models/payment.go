package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

const PaymentMethodBankTransfer = "bank_transfer"

// Payment is a bank transfer reported by a payer together with its receipt.
type Payment struct {
	ID              int64           `json:"id"`
	TaskID          int64           `json:"task_id"`
	PayerUserID     int64           `json:"payer_user_id"`
	GroupMemberID   *int64          `json:"group_member_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"payment_method"`
	Status          PaymentStatus   `json:"status"`
	SenderName      string          `json:"sender_name"`
	SenderBank      string          `json:"sender_bank"`
	RecipientBank   string          `json:"recipient_bank"`
	TransferDate    time.Time       `json:"transfer_date"`
	ReceiptFileID   int64           `json:"transfer_receipt_file_id"`
	VerifiedBy      *int64          `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MemberPaymentStatus tracks one group member's share.
type MemberPaymentStatus string

const (
	MemberPending  MemberPaymentStatus = "pendiente"
	MemberSent     MemberPaymentStatus = "enviado"
	MemberVerified MemberPaymentStatus = "verificado"
	MemberInvalid  MemberPaymentStatus = "invalido"
)

// CanSubmit reports whether a receipt may be (re)submitted for the member.
func (s MemberPaymentStatus) CanSubmit() bool {
	return s == MemberPending || s == MemberInvalid
}

type PaymentGroup struct {
	ID        int64         `json:"id"`
	TaskID    int64         `json:"task_id"`
	Name      string        `json:"name"`
	GroupLink string        `json:"group_link"`
	CreatedAt time.Time     `json:"created_at"`
	Members   []GroupMember `json:"members,omitempty"`
}

type GroupMember struct {
	ID            int64               `json:"id"`
	GroupID       int64               `json:"group_id"`
	MemberName    string              `json:"member_name"`
	UserID        *int64              `json:"user_id,omitempty"`
	ShareAmount   decimal.Decimal     `json:"share_amount"`
	PaymentStatus MemberPaymentStatus `json:"payment_status"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// AllVerified reports whether every member of the group has a verified share.
func (g *PaymentGroup) AllVerified() bool {
	if len(g.Members) == 0 {
		return false
	}
	for _, m := range g.Members {
		if m.PaymentStatus != MemberVerified {
			return false
		}
	}
	return true
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	IsActive      bool            `json:"is_active"`
	ValidUntil    time.Time       `json:"valid_until"`
	CreatedAt     time.Time       `json:"created_at"`
}
