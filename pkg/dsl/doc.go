/*
Package dsl provides a fluent builder for constructing process diagrams in Go.

It is an alternative to hand-writing JSON or YAML when diagrams are generated
by code: starter templates, fixtures in tests, or migrations. Flows may point
at nodes declared later; Build resolves them and rejects targets that never
appear.

Example usage:

	d, err := dsl.New("Expense approval").
		Start("start").Label("Expense submitted").Go("review").Then().
		Task("review").Label("Review expense").Assign("finance").Go("ok").Then().
		Gateway("ok", domain.GatewayExclusive).Label("Approved?").
		Branch("Yes", "pay").Branch("No", "rejected").Then().
		Task("pay").Label("Reimburse").Go("done").Then().
		End("rejected").Label("Rejected").Then().
		End("done").Label("Paid").Then().
		Build()

Diagrams without explicit positions (see NodeBuilder.At) are arranged with
the layered layout.
*/
package dsl
