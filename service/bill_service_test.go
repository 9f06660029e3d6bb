package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

const cafeReceipt = `Corner Cafe
Date: 01/02/2024
Coffee 2 40.00 80.00
Cake 1 40.00 40.00
Total: 120.00`

var _ = Describe("BillService", func() {
	var (
		ctx       context.Context
		extractor *fakeExtractor
		bills     *memStore
		clock     *fixedClock
		svc       *BillService
		start     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		extractor = &fakeExtractor{extraction: dto.Extraction{Text: cafeReceipt, Source: dto.SourceText}}
		bills = newMemStore()
		clock = &fixedClock{now: start}
		svc = NewBillServiceWithDeps(extractor, bills, &fixedIDs{}, clock)
	})

	Describe("Parse", func() {
		var (
			doc  dto.Document
			bill *dto.StoredBill
			err  error
		)

		BeforeEach(func() {
			doc = dto.Document{Filename: "cafe.txt", Data: []byte(cafeReceipt)}
		})

		JustBeforeEach(func() {
			bill, err = svc.Parse(ctx, doc)
		})

		When("extraction succeeds", func() {
			It("returns the parsed bill", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(bill.ID).To(Equal("bill-1"))
				Expect(*bill.Merchant).To(Equal("Corner Cafe"))
				Expect(*bill.Total).To(Equal("120.00"))
				Expect(bill.Category).To(Equal(dto.CategoryFood))
				Expect(bill.Items).To(HaveLen(2))
				Expect(bill.FileName).To(Equal("cafe.txt"))
				Expect(bill.Source).To(Equal(dto.SourceText))
				Expect(bill.SavedAt).To(Equal(start))
				Expect(bill.Raw).To(Equal(cafeReceipt))
			})

			It("does not save the bill", func() {
				all, _ := bills.List()
				Expect(all).To(BeEmpty())
			})

			It("passes the document to the extractor", func() {
				Expect(extractor.docs).To(HaveLen(1))
				Expect(extractor.docs[0].Filename).To(Equal("cafe.txt"))
			})
		})

		When("the text and upload are large", func() {
			BeforeEach(func() {
				extractor.extraction.Text = strings.Repeat("é", dto.MaxRawTextLen+50)
				doc.Data = bytes.Repeat([]byte{'x'}, dto.MaxFileDataLen+10)
			})

			It("truncates raw text by characters and file data by bytes", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect([]rune(bill.Raw)).To(HaveLen(dto.MaxRawTextLen))
				Expect(bill.FileData).To(HaveLen(dto.MaxFileDataLen))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.err = dto.ErrNoText
			})

			It("wraps the error", func() {
				Expect(err).To(MatchError(dto.ErrNoText))
				Expect(err.Error()).To(ContainSubstring("cafe.txt"))
				Expect(bill).To(BeNil())
			})
		})
	})

	Describe("ParseAndSave", func() {
		It("stores the parsed bill", func() {
			bill, err := svc.ParseAndSave(ctx, dto.Document{Filename: "cafe.txt", Data: []byte(cafeReceipt)})
			Expect(err).NotTo(HaveOccurred())

			saved, err := svc.Get(bill.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.DisplayName()).To(Equal("Corner Cafe"))
		})

		It("reports store failures", func() {
			bills.saveErr = errors.New("disk full")

			_, err := svc.ParseAndSave(ctx, dto.Document{Filename: "cafe.txt", Data: []byte(cafeReceipt)})
			Expect(err).To(MatchError(ContainSubstring("disk full")))
		})
	})

	Describe("Save", func() {
		It("fills in a missing id and timestamp", func() {
			bill := &dto.StoredBill{Raw: "hello"}

			Expect(svc.Save(ctx, bill)).To(Succeed())
			Expect(bill.ID).To(Equal("bill-1"))
			Expect(bill.SavedAt).To(Equal(start))
		})
	})

	Describe("History", func() {
		BeforeEach(func() {
			for _, id := range []string{"bill-a", "bill-b", "bill-c"} {
				Expect(svc.Save(ctx, &dto.StoredBill{ID: id})).To(Succeed())
			}
		})

		It("orders bills newest first", func() {
			all, err := svc.History()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal("bill-c"))
			Expect(all[2].ID).To(Equal("bill-a"))
		})

		It("is emptied by Clear", func() {
			Expect(svc.Clear(ctx)).To(Succeed())

			all, err := svc.History()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})

		It("exports as a JSON array", func() {
			var buf bytes.Buffer
			Expect(svc.Export(&buf)).To(Succeed())

			var decoded []map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(3))
			Expect(decoded[0]["id"]).To(Equal("bill-c"))
		})
	})

	Describe("RenderPDF", func() {
		It("returns ErrBillNotFound for unknown bills", func() {
			err := svc.RenderPDF(&bytes.Buffer{}, "missing")
			Expect(err).To(MatchError(dto.ErrBillNotFound))
		})
	})

	Describe("ParseText", func() {
		It("parses without saving", func() {
			rec := svc.ParseText(cafeReceipt)
			Expect(*rec.Merchant).To(Equal("Corner Cafe"))

			all, _ := bills.List()
			Expect(all).To(BeEmpty())
		})
	})

	Describe("responses", func() {
		It("attaches the category creature", func() {
			bill, err := svc.Parse(ctx, dto.Document{Filename: "cafe.txt", Data: []byte(cafeReceipt)})
			Expect(err).NotTo(HaveOccurred())

			preview := NewParseResponse(bill)
			Expect(preview.Creature).NotTo(BeNil())
			Expect(preview.Creature.ID).To(Equal("food"))
			Expect(preview.RawPreview).To(Equal(cafeReceipt))

			full := NewBillResponse(bill)
			Expect(full.Creature.Name).To(Equal("Food"))
			Expect(full.ID).To(Equal(bill.ID))
		})

		It("has no creature for general bills", func() {
			Expect(NewParseResponse(&dto.StoredBill{ParsedRecord: dto.ParsedRecord{Category: dto.CategoryGeneral}}).Creature).To(BeNil())
		})
	})
})
