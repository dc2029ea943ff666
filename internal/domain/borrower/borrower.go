package borrower

import "time"

type Borrower struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Income    float64   `json:"income"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewBorrower(name, email, phone, address string, income float64) *Borrower {
	now := time.Now()
	return &Borrower{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		Income:    income,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Borrower) UpdateContact(email, phone, address string) {
	b.Email = email
	b.Phone = phone
	b.Address = address
	b.UpdatedAt = time.Now()
}

func (b *Borrower) UpdateIncome(income float64) {
	if b.Income != income {
		b.Income = income
		b.UpdatedAt = time.Now()
	}
}
