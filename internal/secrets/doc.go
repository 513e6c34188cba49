// Package secrets runs the external secret scanner against target working trees and decodes its findings.
package secrets
