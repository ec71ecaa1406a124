package asset

import (
	"fmt"
	"strings"

	"riskgate/crypto"
	"riskgate/native/comptroller"
)

// Registry resolves hosted markets by address and by symbol.
type Registry struct {
	books    map[crypto.Address]*Book
	bySymbol map[string]*Book
	order    []crypto.Address
}

func NewRegistry() *Registry {
	return &Registry{
		books:    make(map[crypto.Address]*Book),
		bySymbol: make(map[string]*Book),
	}
}

// Register adds book. Addresses and symbols must be unique.
func (r *Registry) Register(book *Book) error {
	if book == nil {
		return fmt.Errorf("asset: nil book")
	}
	if book.address.IsZero() {
		return fmt.Errorf("asset: %s has no address", book.symbol)
	}
	symbol := strings.ToUpper(strings.TrimSpace(book.symbol))
	if _, exists := r.books[book.address]; exists {
		return fmt.Errorf("asset: %s already registered", book.address)
	}
	if _, exists := r.bySymbol[symbol]; exists && symbol != "" {
		return fmt.Errorf("asset: symbol %s already registered", symbol)
	}
	r.books[book.address] = book
	if symbol != "" {
		r.bySymbol[symbol] = book
	}
	r.order = append(r.order, book.address)
	return nil
}

// Book returns the market at addr.
func (r *Registry) Book(addr crypto.Address) (*Book, bool) {
	book, ok := r.books[addr]
	return book, ok
}

// BySymbol returns the market with the given ticker, case-insensitively.
func (r *Registry) BySymbol(symbol string) (*Book, bool) {
	book, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return book, ok
}

// Books lists every market in registration order.
func (r *Registry) Books() []*Book {
	out := make([]*Book, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.books[addr])
	}
	return out
}

// Asset satisfies comptroller.AssetResolver.
func (r *Registry) Asset(addr crypto.Address) (comptroller.Asset, bool) {
	book, ok := r.books[addr]
	if !ok {
		return nil, false
	}
	return book, true
}

var _ comptroller.AssetResolver = (*Registry)(nil)
var _ comptroller.Asset = (*Book)(nil)
