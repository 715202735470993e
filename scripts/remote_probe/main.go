// Command remote_probe exercises the read-only actions of the legacy
// papeletas service against a real document number and reports whether
// the gateway's decoder still understands the responses. Useful after
// changes on the PHP side, which is not versioned.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/remote"
	"github.com/muni-gth/papeletas-api/pkg/config"
)

type probe struct {
	Name     string
	Err      error
	Duration time.Duration
	Detail   string
}

func main() {
	var (
		base    string
		doc     string
		pages   int
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "https://munimoche.gob.pe/SGD-PERSONAL/cliente/controller/papeleta.php", "legacy service URL")
	flag.StringVar(&doc, "doc", "", "document number to probe with (required)")
	flag.IntVar(&pages, "pages", 2, "listing pages to walk")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if doc == "" {
		log.Fatal("missing -doc")
	}

	client := remote.New(config.RemoteConfig{BaseURL: base, Timeout: timeout}, zap.NewNop(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	results := []probe{
		probeResumen(ctx, client, doc),
	}
	results = append(results, probeListing(ctx, client, doc, pages)...)

	failed := printReport(results)
	if failed > 0 {
		os.Exit(1)
	}
}

func probeResumen(ctx context.Context, client *remote.Client, doc string) probe {
	start := time.Now()
	resumen, err := client.ResumenInicial(ctx, doc)
	p := probe{Name: "obtenerResumenInicial", Err: err, Duration: time.Since(start)}
	if err != nil {
		return p
	}
	p.Detail = fmt.Sprintf("contrato=%s motivos=%d papeletas=%d total=%d",
		resumen.Identity.Contrato.CodigoContrato,
		len(resumen.Identity.Motivos),
		len(resumen.Papeletas),
		resumen.Pagination.TotalRecords)
	if len(resumen.Identity.Motivos) == 0 {
		p.Err = fmt.Errorf("empty motivo catalog")
	}
	return p
}

func probeListing(ctx context.Context, client *remote.Client, doc string, pages int) []probe {
	var results []probe
	for page := 1; page <= pages; page++ {
		start := time.Now()
		papeletas, pagination, err := client.Listar(ctx, models.ListQuery{
			NroDocumento: doc,
			Page:         page,
			PageSize:     9,
			StatusFilter: models.FilterTodas,
		})
		p := probe{
			Name:     fmt.Sprintf("listarPapeletas page=%d", page),
			Err:      err,
			Duration: time.Since(start),
		}
		if err == nil {
			p.Detail = fmt.Sprintf("rows=%d totalPages=%d currentPage=%d",
				len(papeletas), pagination.TotalPages, pagination.CurrentPage)
			for _, item := range papeletas {
				if item.IDPapeleta == "" {
					p.Err = fmt.Errorf("papeleta without id in page %d", page)
					break
				}
			}
		}
		results = append(results, p)
		if err != nil || page >= pagination.TotalPages {
			break
		}
	}
	return results
}

func printReport(results []probe) int {
	fmt.Println("Legacy Contract Probe")
	fmt.Println("=====================")
	failed := 0
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Name, res.Duration)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else if res.Detail != "" {
			fmt.Printf("  %s\n", res.Detail)
		}
	}
	fmt.Printf("Probes: %d, Failed: %d\n", len(results), failed)
	return failed
}
