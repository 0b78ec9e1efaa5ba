package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tmpim/pxl"
	"github.com/tmpim/pxl/asset"
	"github.com/tmpim/pxl/preview"
)

var (
	dir         = flag.String("dir", ".", "directory to load assets from")
	palettePath = flag.String("palette", "palette.png", "palette image, relative to -dir")
	spritePath  = flag.String("sprite", "sprite.png", "sprite sheet, relative to -dir")
	fontPath    = flag.String("font", "", "optional glyph sheet, relative to -dir")
	altPath     = flag.String("alt-palette", "", "optional palette to switch to and back, relative to -dir")
	switchEvery = flag.Duration("switch", 3*time.Second, "how often to switch palettes when -alt-palette is set")
	text        = flag.String("text", "hello", "text to draw when -font is set")
	width       = flag.Int("width", 128, "width of the rendered frame")
	height      = flag.Int("height", 96, "height of the rendered frame")
	fps         = flag.Int("fps", 20, "frames rendered per second")
	period      = flag.Duration("period", time.Second, "duration of one animation loop")
	addr        = flag.String("addr", ":9999", "address to serve the preview on")
	verbose     = flag.Bool("v", false, "log requests and render diagnostics")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *fps < 1 {
		log.Println("FPS must be at least 1.")
		os.Exit(1)
	}

	if *width < 1 || *height < 1 {
		log.Println("Width and height must be positive.")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	pxl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	fsys := os.DirFS(*dir)
	loader := asset.NewLoader(0)

	sprite, err := loader.OpenSprite(fsys, *spritePath)
	if err != nil {
		log.Println("Failed to open sprite:", err)
		os.Exit(1)
	}

	var font *pxl.Handle[pxl.Typeface]
	if *fontPath != "" {
		font, err = loader.OpenTypeface(fsys, *fontPath)
		if err != nil {
			log.Println("Failed to open font:", err)
			os.Exit(1)
		}
	}

	palette, err := loader.OpenPalette(fsys, *palettePath)
	if err != nil {
		log.Println("Failed to load assets:", err)
		os.Exit(1)
	}

	palettes := []*pxl.Palette{palette}
	if *altPath != "" {
		func() {
			f, err := fsys.Open(*altPath)
			if err != nil {
				log.Println("Failed to open alternate palette:", err)
				os.Exit(1)
			}
			defer f.Close()

			alt, err := asset.LoadPalette(f)
			if err != nil {
				log.Println("Failed to load alternate palette:", err)
				os.Exit(1)
			}
			palettes = append(palettes, alt)
		}()
	}

	compositor, err := pxl.NewCompositor[int](pxl.Options{Size: image.Pt(*width, *height)})
	if err != nil {
		log.Println("Failed to create compositor:", err)
		os.Exit(1)
	}

	server, err := preview.NewServer(preview.Options{
		Palette:     palette,
		LogRequests: *verbose,
	})
	if err != nil {
		log.Println("Failed to create preview server:", err)
		os.Exit(1)
	}

	start := time.Now()
	scene := &pxl.Scene[int]{
		Sprites: []*pxl.SpriteRecord[int]{{
			ID:       1,
			Sprite:   sprite,
			Position: image.Pt(*width/2, *height/2),
			Layer:    1,
			Animation: &pxl.Animation{
				Start:      start,
				Duration:   pxl.PerAnimation(*period),
				OnFinish:   pxl.Loop,
				Addressing: pxl.Indexed,
			},
		}},
	}
	if font != nil {
		scene.Texts = append(scene.Texts, &pxl.TextRecord[int]{
			ID:       2,
			Text:     *text,
			Typeface: font,
			Width:    *width,
			Position: image.Pt(*width/2, 1),
			Anchor:   pxl.AnchorBottomCenter,
			Layer:    2,
			Canvas:   pxl.Camera,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(*fps))
		defer ticker.Stop()

		var switches <-chan time.Time
		if len(palettes) > 1 && *switchEvery > 0 {
			switchTicker := time.NewTicker(*switchEvery)
			defer switchTicker.Stop()
			switches = switchTicker.C
		}
		current := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-switches:
				current = (current + 1) % len(palettes)
				if err := server.SetPalette(palettes[current]); err != nil {
					log.Println("Failed to switch palette:", err)
				}
			case now := <-ticker.C:
				res, err := compositor.Render(scene, now)
				if err != nil {
					log.Println("Failed to render:", err)
					continue
				}
				if err := server.Publish(res.Image); err != nil {
					log.Println("Failed to publish frame:", err)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving preview on %s (GET /api/frame.png, websocket /api/client)\n", *addr)

	if err := server.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println("Failed to serve:", err)
		os.Exit(1)
	}
}
