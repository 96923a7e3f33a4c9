// Package geo reports device location to the backend.
//
// The component only covers explicit location updates: the host tracks
// position with whatever source it has and hands fixes to UpdateLocation.
// Region monitoring and beacon ranging are not implemented.
package geo
