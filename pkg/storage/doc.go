// Package storage keeps the files the tool produces for the operator, such as
// the login QR code image.
//
// The Manager type owns one artifact directory. Writes go through a temporary
// file and a rename so a reader never sees a partial image, and the manager
// indexes the artifacts already present when it is created.
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Output.ArtifactDirectory)
//	if err != nil {
//	    return err
//	}
//
//	path, err := manager.SaveDataURL(src, "login_qrcode")
//	if err != nil {
//	    return err
//	}
package storage
