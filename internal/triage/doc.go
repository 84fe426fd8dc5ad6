// Package triage decides whether an incoming email should be ignored,
// surfaced to the user, or answered.
//
// Classifier delegates the judgment to a reasoner and forces it to answer
// through the triage_email tool; RuleClassifier is a keyword based
// classifier used when no reasoner is configured and as a fallback when the
// reasoner's answer cannot be mapped onto a classification.
package triage
