// Package tableref addresses positions inside nested documents.
//
// A TableRef is one node of the path from a collection's document root down
// to a nested object or array. Every doc part of a collection is keyed by the
// TableRef of the position it stores.
//
// # Shape
//
//   - The root has depth 0, array dimension 0 and an empty name.
//   - An object child carries the field name and array dimension 0.
//   - An array child stands for an array nested directly inside another
//     array. Its name is "$" followed by the dimension. The first array level
//     below an object has dimension 2 and every further level adds one.
//
// # Encoding
//
// A TableRef is stored as the ordered list of its tokens, one per level below
// the root. Object names that start with "$" or "\" are prefixed with "\" so
// they never collide with array tokens:
//
//	root.child("a").array(2).child("$b")  =>  ["a", "$2", "\$b"]
//
// Decode rebuilds the same TableRef from that list.
//
// # Equality
//
// TableRefs compare structurally. Use Equal or Key, never pointer identity:
// two factories produce distinct pointers for the same path.
package tableref
