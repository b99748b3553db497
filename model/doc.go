// Package model holds the geometry shared by the graphics state, the
// interpreter and devices: [Point], [BBox] and the affine [Matrix].
//
// Matrices follow the PDF row-vector convention. m.Multiply(n) applies m
// first, so the cm operator's update is M.Multiply(CTM), and a text
// rendering matrix is Trm = [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM.
package model
