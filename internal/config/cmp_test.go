package config_test

import (
	"github.com/google/go-cmp/cmp"
	"github.com/hiproz/Xapiand/internal/config"
)

var cmpConfig = cmp.Comparer(func(a, b config.Nullable[bool]) bool {
	va, oka := a.Value()
	vb, okb := b.Value()
	return va == vb && oka == okb
})
