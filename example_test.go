package lattice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/dsl"
)

// ExampleWorkspace_Validate builds a diagram in Go, validates it and renders it as Mermaid.
func ExampleWorkspace_Validate() {
	d, err := dsl.New("Fulfilment").
		Start("start").Label("Order received").Go("pick").Then().
		Task("pick").Label("Pick items").Go("done").Then().
		End("done").Label("Shipped").Then().
		Build()
	if err != nil {
		log.Fatal(err)
	}

	ws, err := lattice.New()
	if err != nil {
		log.Fatal(err)
	}
	res := ws.Validate(context.Background(), d)
	fmt.Println(res.Summary())
	fmt.Print(graph.GenerateMermaid(d, nil))

	// Output:
	// Process is valid
	// flowchart LR
	//     start(("Order received"))
	//     pick("Pick items")
	//     done((("Shipped")))
	//     start --> pick
	//     pick --> done
}

// ExampleWorkspace_Validate_issues shows how a broken diagram is reported.
func ExampleWorkspace_Validate_issues() {
	ws, err := lattice.New()
	if err != nil {
		log.Fatal(err)
	}

	d := ws.NewDiagram("Draft")
	res := ws.Validate(context.Background(), d)
	fmt.Println(res.Summary())
	for _, issue := range res.Errors {
		fmt.Println(issue.Code)
	}

	// Output:
	// Process has 2 error(s) and 0 warning(s)
	// MissingStartEvent
	// MissingEndEvent
}
