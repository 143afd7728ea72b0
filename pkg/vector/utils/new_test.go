package vectorutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/vector/inmemory"
	"github.com/GKaszewski/k-core/pkg/vector/qdrant"
	vectorutils "github.com/GKaszewski/k-core/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	It("defaults to the in-memory driver", func() {
		d, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("builds a qdrant driver without dialing", func() {
		d, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
			ProviderType: "qdrant",
			TargetURL:    "http://127.0.0.1:6334",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&qdrant.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{ProviderType: "chroma"})
		Expect(apperr.IsConfiguration(err)).To(BeTrue())
	})
})
