package cli

import (
	"context"
	"errors"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
)

// StarterTemplates returns the templates a fresh catalog is seeded with.
func StarterTemplates() []*domain.Diagram {
	approval := dsl.New("Approval").
		Start("submitted").Label("Request submitted").Go("review").Then().
		Task("review").Label("Review request").Assign("manager").Go("decision").Then().
		Gateway("decision", domain.GatewayExclusive).Label("Approved?").
		Branch("Yes", "fulfil").Branch("No", "rejected").Then().
		Task("fulfil").Label("Fulfil request").Go("done").Then().
		End("rejected").Label("Rejected").Then().
		End("done").Label("Completed").Then().
		MustBuild()
	approval.ID = "tpl-approval"
	approval.Description = "Single reviewer approval with a reject path"

	onboarding := dsl.New("Onboarding").
		Start("hired").Label("Employee hired").Go("split").Then().
		Gateway("split", domain.GatewayParallel).Label("Prepare").Go("accounts").Go("equipment").Then().
		Task("accounts").Label("Create accounts").Assign("it").Meta(domain.KeyAutomated, true).Go("join").Then().
		Task("equipment").Label("Ship equipment").Assign("facilities").Go("join").Then().
		Gateway("join", domain.GatewayParallel).Label("Ready").Go("welcome").Then().
		Task("welcome").Label("Welcome session").Assign("hr").Go("done").Then().
		End("done").Label("Onboarded").Then().
		MustBuild()
	onboarding.ID = "tpl-onboarding"
	onboarding.Description = "Parallel preparation before the first day"

	return []*domain.Diagram{approval, onboarding}
}

// SeedTemplates stores the starter templates that are not in the catalog yet.
// It returns how many were added.
func SeedTemplates(ctx context.Context, ws *lattice.Workspace) (int, error) {
	added := 0
	for _, tpl := range StarterTemplates() {
		_, err := ws.Catalog().LoadDiagram(ctx, catalog.Templates, tpl.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrEntityNotFound) {
			return added, err
		}
		if _, err := ws.Save(ctx, catalog.Templates, tpl); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
