package store

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

func strPtr(s string) *string { return &s }

func newBill(id, merchant string) *dto.StoredBill {
	return &dto.StoredBill{
		ID: id,
		ParsedRecord: dto.ParsedRecord{
			Merchant: strPtr(merchant),
			Total:    strPtr("120.00"),
			Items: dto.Items{
				dto.FullItem{Name: "Coffee", Quantity: "2", UnitPrice: "60.00", LineTotal: "120.00"},
			},
			Category: dto.CategoryFood,
		},
		Raw:      "Corner Cafe\nCoffee 2 60.00 120.00\nTotal 120.00",
		FileName: "receipt.txt",
		Source:   dto.SourceText,
		SavedAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

var _ = Describe("BoltStore", func() {
	var (
		dbPath string
		s      *BoltStore
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "bills.db")
		var err error
		s, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if s != nil {
			s.Close()
		}
	})

	Describe("Save", func() {
		var (
			bill *dto.StoredBill
			err  error
		)

		BeforeEach(func() {
			bill = newBill("bill-1", "Corner Cafe")
		})

		JustBeforeEach(func() {
			err = s.Save(bill)
		})

		When("the bill has an id", func() {
			It("stores the bill", func() {
				Expect(err).NotTo(HaveOccurred())

				saved, getErr := s.Get("bill-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(*saved.Merchant).To(Equal("Corner Cafe"))
				Expect(saved.Category).To(Equal(dto.CategoryFood))
				Expect(saved.SavedAt.Equal(bill.SavedAt)).To(BeTrue())
			})

			It("keeps the item variant", func() {
				saved, getErr := s.Get("bill-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Items).To(HaveLen(1))
				Expect(saved.Items[0]).To(BeAssignableToTypeOf(dto.FullItem{}))
			})
		})

		When("the bill has no id", func() {
			BeforeEach(func() {
				bill.ID = ""
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("a bill with the same id exists", func() {
			BeforeEach(func() {
				Expect(s.Save(newBill("bill-1", "Old Name"))).To(Succeed())
			})

			It("overwrites it", func() {
				saved, getErr := s.Get("bill-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(*saved.Merchant).To(Equal("Corner Cafe"))

				all, listErr := s.List()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(1))
			})
		})
	})

	Describe("Get", func() {
		When("the bill does not exist", func() {
			It("returns ErrBillNotFound", func() {
				_, err := s.Get("missing")
				Expect(err).To(MatchError(dto.ErrBillNotFound))
			})
		})
	})

	Describe("List", func() {
		When("the store is empty", func() {
			It("returns an empty, non-nil slice", func() {
				all, err := s.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(all).NotTo(BeNil())
				Expect(all).To(BeEmpty())
			})
		})

		When("bills exist", func() {
			BeforeEach(func() {
				Expect(s.Save(newBill("bill-a", "Alpha Store"))).To(Succeed())
				Expect(s.Save(newBill("bill-b", "Beta Mart"))).To(Succeed())
			})

			It("returns all of them", func() {
				all, err := s.List()
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(2))
				Expect(all[0].ID).To(Equal("bill-a"))
				Expect(all[1].ID).To(Equal("bill-b"))
			})
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			Expect(s.Save(newBill("bill-a", "Alpha Store"))).To(Succeed())
		})

		It("removes every bill and leaves the store usable", func() {
			Expect(s.Clear()).To(Succeed())

			all, err := s.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())

			Expect(s.Save(newBill("bill-c", "Gamma"))).To(Succeed())
			all, err = s.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})

	Describe("reopening", func() {
		It("keeps saved bills", func() {
			Expect(s.Save(newBill("bill-a", "Alpha Store"))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			var err error
			s, err = NewBoltStore(dbPath)
			Expect(err).NotTo(HaveOccurred())

			saved, err := s.Get("bill-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.FileName).To(Equal("receipt.txt"))
		})
	})
})
