package main

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/OffBroadway/mdadm/pkg/jbod"
	"github.com/OffBroadway/mdadm/pkg/mdadm"
)

func main() {
	array, err := jbod.OpenArray(afero.NewMemMapFs(), "/disks", jbod.DefaultGeometry, nil)
	if err != nil {
		panic(err)
	}
	defer array.Close()

	driver, err := mdadm.New(array, jbod.DefaultGeometry, nil)
	if err != nil {
		panic(err)
	}

	err = driver.Mount()
	if err != nil {
		panic(err)
	}
	defer driver.Unmount()

	err = driver.GrantWritePermission()
	if err != nil {
		panic(err)
	}

	// straddles the boundary between disk 0 and disk 1
	data := []byte("Hello.... World?\n")
	addr := jbod.DefaultGeometry.DiskSize - 8

	_, err = driver.Write(addr, uint32(len(data)), data)
	if err != nil {
		panic(err)
	}

	buf := make([]byte, len(data))
	n, err := driver.Read(addr, uint32(len(buf)), buf)
	if err != nil {
		panic(err)
	}

	loc := mdadm.Translate(jbod.DefaultGeometry, addr)
	fmt.Printf("DATA at disk %d block %d offset %d: %s", loc.Disk, loc.Block, loc.Offset, buf[:n])
	fmt.Println("Done!")
}
