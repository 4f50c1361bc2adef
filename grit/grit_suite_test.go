package grit_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGrit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "grit Suite")
}
