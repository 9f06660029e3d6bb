package service

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

var _ = Describe("TextExtractor", func() {
	var (
		ctx       context.Context
		pdf       *fakePDF
		images    *fakeImages
		ocr       *pageOCR
		extractor TextExtractor
		doc       dto.Document
		result    dto.Extraction
		err       error
	)

	BeforeEach(func() {
		ctx = context.Background()
		pdf = &fakePDF{}
		images = &fakeImages{}
		ocr = &pageOCR{texts: map[string]string{}}
		extractor = NewTextExtractor(pdf, images, ocr, 2)
	})

	JustBeforeEach(func() {
		result, err = extractor.Extract(ctx, doc)
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "empty.pdf"}
		})

		It("returns ErrEmptyFile", func() {
			Expect(err).To(MatchError(dto.ErrEmptyFile))
		})
	})

	When("the file is plain text", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "bill.txt", Data: []byte("Corner Cafe\nTotal 5.00")}
		})

		It("returns the bytes as text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("Corner Cafe\nTotal 5.00"))
			Expect(result.Source).To(Equal(dto.SourceText))
			Expect(ocr.calls).To(BeZero())
		})
	})

	When("the file is an image", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}
			ocr.texts["png:jpeg"] = "Fresh Mart\nTotal 12.00"
		})

		It("normalises and OCRs it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("Fresh Mart\nTotal 12.00"))
			Expect(result.Source).To(Equal(dto.SourceOCR))
		})

		Context("and OCR finds nothing", func() {
			BeforeEach(func() {
				ocr.texts["png:jpeg"] = "   "
			})

			It("returns ErrNoText", func() {
				Expect(err).To(MatchError(dto.ErrNoText))
			})
		})

		Context("and OCR fails", func() {
			BeforeEach(func() {
				delete(ocr.texts, "png:jpeg")
			})

			It("wraps the failure as ErrNoText", func() {
				Expect(err).To(MatchError(dto.ErrNoText))
				Expect(err.Error()).To(ContainSubstring("unreadable image"))
			})
		})

		Context("and it cannot be decoded", func() {
			BeforeEach(func() {
				images.err = dto.ErrUnsupportedFile
			})

			It("returns the decode error", func() {
				Expect(err).To(MatchError(dto.ErrUnsupportedFile))
			})
		})
	})

	When("the file is a PDF with embedded text", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "bill.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
			pdf.text = "Spice Route Restaurant\nGrand Total 672.00\n"
			pdf.pages = 1
		})

		It("uses the embedded text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Source).To(Equal(dto.SourcePDF))
			Expect(result.Text).To(Equal(pdf.text))
			Expect(result.Pages).To(Equal(1))
			Expect(ocr.calls).To(BeZero())
		})

		Context("and OCR is forced", func() {
			BeforeEach(func() {
				doc.ForceOCR = true
				pdf.rendered = [][]byte{[]byte("page1")}
				ocr.texts["page1"] = "Scanned text"
			})

			It("skips the embedded text", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(pdf.textCalls).To(BeZero())
				Expect(result.Source).To(Equal(dto.SourcePDFOCR))
				Expect(result.Text).To(Equal("Scanned text"))
			})
		})
	})

	When("the PDF is scanned", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "scan.pdf", Data: []byte("%PDF")}
			pdf.text = " \n"
			pdf.pages = 3
			pdf.rendered = [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}
			ocr.texts["p1"] = "Page one"
			ocr.texts["p2"] = "Page two"
			ocr.texts["p3"] = "Page three"
		})

		It("OCRs every page and keeps their order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Source).To(Equal(dto.SourcePDFOCR))
			Expect(result.Text).To(Equal("Page one\nPage two\nPage three"))
			Expect(result.Pages).To(Equal(3))
		})

		Context("and one page cannot be read", func() {
			BeforeEach(func() {
				delete(ocr.texts, "p2")
			})

			It("keeps the other pages", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Text).To(Equal("Page one\nPage three"))
			})
		})

		Context("and rendering fails", func() {
			BeforeEach(func() {
				pdf.renderErr = errors.New("mupdf missing")
				pdf.images = [][]byte{[]byte("img1")}
				ocr.texts["img1"] = "From embedded image"
			})

			It("OCRs the embedded images", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(pdf.imageCalls).To(Equal(1))
				Expect(result.Text).To(Equal("From embedded image"))
			})
		})

		Context("and no page yields text", func() {
			BeforeEach(func() {
				ocr.texts = map[string]string{}
			})

			It("returns ErrNoText", func() {
				Expect(err).To(MatchError(dto.ErrNoText))
			})
		})
	})

	When("the PDF has a little embedded text and OCR fails", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "short.pdf", Data: []byte("%PDF")}
			pdf.text = "Total 5.00"
			pdf.pages = 1
			pdf.rendered = [][]byte{[]byte("p1")}
		})

		It("keeps the embedded text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Source).To(Equal(dto.SourcePDF))
			Expect(result.Text).To(Equal("Total 5.00"))
		})
	})

	When("the PDF cannot be parsed", func() {
		BeforeEach(func() {
			doc = dto.Document{Filename: "mislabeled.pdf", Data: []byte("raw")}
			pdf.textErr = errors.New("malformed PDF")
			pdf.renderErr = errors.New("not a PDF")
			pdf.imagesErr = errors.New("not a PDF")
			ocr.texts["png:raw"] = "Receipt from photo"
		})

		It("OCRs the raw upload as an image", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Source).To(Equal(dto.SourceOCR))
			Expect(result.Text).To(Equal("Receipt from photo"))
		})
	})

	When("the context is cancelled", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			cancel()
			doc = dto.Document{Filename: "scan.pdf", Data: []byte("%PDF"), ForceOCR: true}
			pdf.rendered = [][]byte{[]byte("p1")}
			ocr.texts["p1"] = "text"
		})

		It("does not report success", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
