// Package sqlcraft holds the error taxonomy shared by the SQL compiler in
// dialect/sql and the transaction manager in dialect/sql/sqltx.
//
// Rendering fails with a *StructuralError when a node is malformed and
// with an *UnsupportedFeatureError when the target dialect or server
// version lacks a construct. Transaction operations fail with a
// *TransactionError, or an *IsolationLevelError for isolation changes:
//
//	query, args, err := stmt.Render(d)
//	if sqlcraft.IsUnsupportedFeature(err) {
//		// fall back to a portable form
//	}
package sqlcraft
