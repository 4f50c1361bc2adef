package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstant_String(t *testing.T) {
	cases := []struct {
		name string
		c    Constant
		want string
	}{
		{"positive int", Constant{Kind: ConstInt, Int: 42}, "42"},
		{"negative int", Constant{Kind: ConstInt, Int: -42}, "-42"},
		{"zero int", Constant{Kind: ConstInt, Int: 0}, "0"},
		{"positive float", Constant{Kind: ConstFloat, Float: 0.5}, "0.5"},
		{"negative float", Constant{Kind: ConstFloat, Float: -1.5}, "-1.5"},
		{"whole float", Constant{Kind: ConstFloat, Float: 3}, "3"},
		{"bool true", Constant{Kind: ConstBool, Bool: true}, "true"},
		{"bool false", Constant{Kind: ConstBool, Bool: false}, "false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.String())
		})
	}
}
