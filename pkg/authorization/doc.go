/*
Package authorization evaluates per-fact-type rules against the
evidence a caller bundles with a submission, deciding whether the
submitting user's fact reference is permitted to author a candidate
fact. It never consults storage for anything a rule could prove from
evidence alone; a query rule's suffix may still reach into storage,
but a specification rule's walk is evidence-only, by the frozen
decision below.

Rules are registered per fact type, evaluated in registration order,
first admit wins.

# Rule kinds

  - Any — always authorized.
  - None — never authorized; logs a warning naming the type.
  - QueryRule — a legacy step query run against a hybrid evidence+storage
    graph; authorized iff the submitting user's reference appears in
    the resulting frontier.
  - SpecificationRule — a named-label specification with exactly one
    given (the candidate) and a single-label projection; authorized
    iff the user's reference is among the projected results.

# Successor-direction rejection

A SpecificationRule whose matches walk in the successor direction
(RolesLeft) anywhere, including inside nested existential conditions,
is rejected at registration time with an error — evidence is a
predecessor closure and cannot prove the absence of successors, so
the rule is refused rather than silently under- or over-authorizing.
*/
package authorization
