/*
Package validation checks the structure of a process diagram.

Validate never mutates the diagram and never fails: findings are returned as
data, split by severity. Errors make a diagram invalid; warnings are advisory
and never block downstream operations. Whether an invalid diagram may still be
exported or simulated is the caller's policy.

Rules, evaluated in order and accumulated:

 1. No StartEvent is an error (MissingStartEvent); more than one is a warning (MultipleStartEvents).
 2. No EndEvent is an error (MissingEndEvent).
 3. A node that no edge references is a warning (DisconnectedElement), except StartEvents.
 4. A node whose label is empty or still the "New <Kind>" placeholder is a warning (UnnamedElement).
 5. An edge whose source or target does not resolve is an error (DanglingReference).
 6. A Gateway whose gatewayType is not exclusive, parallel or inclusive is a warning (InvalidGatewayType).
*/
package validation
