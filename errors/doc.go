/*
Package errors provides the error taxonomy for docstore.

Backend failures surface as one of four kinds:

  - ConnectionError: a bucket, scope or node could not be reached or resolved
  - UnsupportedCapabilityError: the cluster lacks a capability an operation needs
  - BackendExecutionError: a recognized failure (timeout, not-found,
    constraint-violation) raised while executing a statement
  - passthrough: anything unrecognized, returned unchanged

Translator performs the mapping. It is built from Classifier functions that
each backend package contributes:

	tr := errors.NewTranslator(couchbase.Classify)
	err = tr.Translate(err)
	if errors.IsBackendExecution(err) && errors.CategoryOf(err) == errors.CategoryTimeout {
	    // retry later
	}

The key-value errors (NotFoundError, AlreadyExistsError, ValidationError,
ConditionFailedError) are still usable directly with errors.Is or the Is*
helpers.
*/
package errors
