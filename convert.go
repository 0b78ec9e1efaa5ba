package pxl

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ConverterOptions configures Convert.
type ConverterOptions struct {
	Context context.Context
	Palette *Palette
	// Exact decodes pre-palettized sources. Otherwise Dither is used, where
	// nil selects the nearest color.
	Exact      bool
	Dither     *Dither
	Preprocess *PreprocessOptions
	Workers    int
	// Buffer is the number of frames that may be in flight.
	Buffer int
}

func (c *ConverterOptions) validate() error {
	if c.Context == nil {
		return errors.New("pxl: Convert: context must be specified")
	}
	if c.Palette == nil {
		return errors.New("pxl: Convert: palette must be specified")
	}
	if c.Workers <= 0 {
		return errors.New("pxl: Convert: workers must be positive")
	}
	if c.Buffer < 0 {
		return errors.New("pxl: Convert: buffer must not be negative")
	}
	if c.Dither != nil {
		if err := c.Dither.validate(); err != nil {
			return err
		}
	}
	if c.Preprocess != nil {
		if err := c.Preprocess.validate(); err != nil {
			return err
		}
	}

	return nil
}

// Convert quantizes every image read from input and writes the results to
// output in input order. It returns nil once input is closed and every
// result has been delivered, or the first conversion error.
func Convert(input <-chan image.Image, output chan<- *Image, opts ConverterOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(opts.Context)
	defer cancel()

	inbox := make(chan convertJob, opts.Workers*2)
	for i := 0; i < opts.Workers; i++ {
		go convertWorker(ctx, inbox, &opts)
	}

	pending := make(chan chan imageOrError, opts.Buffer+opts.Workers)
	go convertPump(ctx, input, inbox, pending)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, more := <-pending:
			if !more {
				return ctx.Err()
			}

			var res imageOrError
			select {
			case res = <-result:
			case <-ctx.Done():
				return ctx.Err()
			}
			if res.err != nil {
				return fmt.Errorf("pxl: Convert: %w", res.err)
			}

			select {
			case output <- res.img:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type imageOrError struct {
	img *Image
	err error
}

type convertJob struct {
	img    image.Image
	output chan<- imageOrError
}

func convertPump(ctx context.Context, input <-chan image.Image,
	inbox chan<- convertJob, pending chan<- chan imageOrError) {
	defer close(inbox)
	defer close(pending)

	for {
		var img image.Image
		var more bool
		select {
		case <-ctx.Done():
			return
		case img, more = <-input:
			if !more {
				return
			}
		}

		result := make(chan imageOrError, 1)
		select {
		case pending <- result:
		case <-ctx.Done():
			return
		}

		select {
		case inbox <- convertJob{img: img, output: result}:
		case <-ctx.Done():
			return
		}
	}
}

func convertWorker(ctx context.Context, inbox <-chan convertJob, opts *ConverterOptions) {
	for job := range inbox {
		img, err := convertFrame(ctx, job.img, opts)
		job.output <- imageOrError{img: img, err: err}
	}
}

func convertFrame(ctx context.Context, src image.Image, opts *ConverterOptions) (*Image, error) {
	if opts.Preprocess != nil {
		var err error
		src, err = Preprocess(src, *opts.Preprocess)
		if err != nil {
			return nil, err
		}
	}

	if opts.Exact {
		return QuantizeExact(opts.Palette, src)
	}
	return QuantizeDither(opts.Palette, src, opts.Dither, WithWorkers(1), WithContext(ctx))
}
