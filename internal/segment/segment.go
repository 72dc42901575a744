package segment

// File is one backing file of the rotating stream.
type File struct {
	Index int64
	Path  string
	Size  int64
}

// Set is the ordered history of backing files for one directory, oldest
// first. The engine keeps the open file out of the set; everything in here
// is closed and its size is final.
type Set []File

// TotalBytes returns the sum of all file sizes in the set.
func (s Set) TotalBytes() int64 {
	var total int64
	for _, f := range s {
		total += f.Size
	}
	return total
}

// Last returns the highest-index file of the set.
func (s Set) Last() (File, bool) {
	if len(s) == 0 {
		return File{}, false
	}
	return s[len(s)-1], true
}
