package main

import (
	"fmt"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/tmpim/pxl"
)

func main() {
	if len(os.Args) != 2 {
		panic("must have path to image")
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		panic(err)
	}

	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		panic(err)
	}

	palette, err := pxl.GeneratePalette(img, 16, 10)
	if err != nil {
		panic(err)
	}

	for _, algo := range []pxl.DitherAlgorithm{pxl.Ordered, pxl.Pattern} {
		dither := &pxl.Dither{Algorithm: algo, Threshold: 0.4, Map: pxl.Map4x4}

		wg := new(sync.WaitGroup)
		start := time.Now()

		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if _, err := pxl.QuantizeDither(palette, img, dither, pxl.WithWorkers(1)); err != nil {
						panic(err)
					}
				}
			}()
		}

		wg.Wait()
		fmt.Println(algo, "took:", time.Since(start))
	}
}
