// Package testsupport holds fixtures shared by package tests: temp-dir backed
// configs and real encoded images of chosen dimensions.
package testsupport
