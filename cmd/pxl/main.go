package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/1lann/imagequant"

	"github.com/tmpim/pxl"
	"github.com/tmpim/pxl/asset"
)

var (
	outputPath  = flag.String("o", "output.png", "set location of output image (will be an indexed PNG)")
	palettePath = flag.String("palette", "", "use the colors of this image as the palette")
	colors      = flag.Int("colors", 16, "number of colors to generate when no palette is given")
	speed       = flag.Int("q", 1, "set the palette generation speed/quality (1 = slowest, 10 = fastest)")
	threshold   = flag.Float64("d", 0.2, "set the amount of dithering (0 = none)")
	algorithm   = flag.String("algo", "ordered", "dither algorithm (ordered or pattern)")
	mapSize     = flag.Int("map", 4, "threshold map size (2, 4 or 8)")
	width       = flag.Int("w", 0, "resize to this width before quantizing (0 = keep)")
	height      = flag.Int("h", 0, "resize to this height before quantizing (0 = keep)")
	workers     = flag.Int("workers", 0, "number of workers (0 = number of CPUs)")
	license     = flag.Bool("license", false, "show licensing disclaimers and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *license {
		log.Println("pxl is licensed under the MIT license.")
		log.Println("However other portions of pxl are under different licenses,")
		log.Println("the information of which can be found below.")
		log.Println(imagequant.License())
		os.Exit(0)
	}

	if *speed < 1 || *speed > 10 {
		log.Println("Speed must be between 1 and 10.")
		os.Exit(1)
	}

	if *threshold < 0 {
		log.Println("Dither cannot be less than 0.")
		os.Exit(1)
	}

	dither := &pxl.Dither{Threshold: *threshold}
	switch *algorithm {
	case "ordered":
		dither.Algorithm = pxl.Ordered
	case "pattern":
		dither.Algorithm = pxl.Pattern
	default:
		log.Println("Unknown dither algorithm:", *algorithm)
		os.Exit(1)
	}

	switch *mapSize {
	case 2:
		dither.Map = pxl.Map2x2
	case 4:
		dither.Map = pxl.Map4x4
	case 8:
		dither.Map = pxl.Map8x8
	default:
		log.Println("Threshold map size must be 2, 4 or 8.")
		os.Exit(1)
	}

	if flag.Arg(0) == "" {
		log.Println("Usage: pxl [options] input_image")
		log.Println("")
		log.Println("pxl converts an image (PNG, JPG, GIF or BMP) into an indexed PNG")
		log.Println("using a fixed palette and ordered dithering.")
		log.Println("")
		log.Println("Options:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	start := time.Now()

	var img image.Image

	func() {
		input, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Println("Failed to open image:", err)
			os.Exit(1)
		}
		defer input.Close()

		img, err = asset.Decode(input)
		if err != nil {
			log.Println("Failed to decode image:", err)
			os.Exit(1)
		}
	}()

	if *width > 0 || *height > 0 {
		resized, err := pxl.Preprocess(img, pxl.PreprocessOptions{
			Width:      *width,
			Height:     *height,
			Resampling: pxl.Lanczos,
		})
		if err != nil {
			log.Println("Failed to resize image:", err)
			os.Exit(1)
		}
		img = resized
	}

	var palette *pxl.Palette

	if *palettePath != "" {
		func() {
			input, err := os.Open(*palettePath)
			if err != nil {
				log.Println("Failed to open palette:", err)
				os.Exit(1)
			}
			defer input.Close()

			palette, err = asset.LoadPalette(input)
			if err != nil {
				log.Println("Failed to load palette:", err)
				os.Exit(1)
			}
		}()
	} else {
		log.Println("Image loaded, generating palette...")

		var err error
		palette, err = pxl.GeneratePalette(img, *colors, *speed)
		if err != nil {
			log.Println("Failed to generate palette:", err)
			os.Exit(1)
		}
	}

	log.Printf("Using %d colors, quantizing...\n", palette.Len())

	quant, err := pxl.QuantizeDither(palette, img, dither, pxl.WithWorkers(*workers))
	if err != nil {
		log.Println("Failed to quantize image:", err)
		os.Exit(1)
	}

	output, err := os.Create(*outputPath)
	if err != nil {
		log.Println("Failed to create output image:", err)
		os.Exit(1)
	}
	defer output.Close()

	if err := png.Encode(output, quant.Paletted(palette)); err != nil {
		log.Println("Failed to encode output image:", err)
		os.Exit(1)
	}

	log.Println("\nDone! That took " + time.Since(start).String() + ".")
	log.Printf("Image outputted to \"%s\".\n", *outputPath)
}
