// go test -bench=. -benchmem ./generator
package generator_test

import (
	"fmt"
	"testing"

	"github.com/TFMV/featgen/generator"
)

func BenchmarkGenerate(b *testing.B) {
	for _, size := range []int{50, 1000, 100000} {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			cfg := generator.Config{NUsers: size, Seed: generator.DefaultSeed}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				tbl, err := generator.Generate(cfg)
				if err != nil {
					b.Fatal(err)
				}
				tbl.Release()
			}
		})
	}
}
